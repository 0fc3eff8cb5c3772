// Package cli provides the interactive command-line client for the auth
// server.
//
// It wires configuration, the HTTP API client, and an interactive REPL.
// Typical flow: register or log in, then refresh or revoke the session
// tokens held in memory.
//
// Key features:
//   - Register / Login / Logout
//   - Refresh the current token pair
//   - Verify an email address by token
//   - Promote another user to admin (requires an admin session)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
