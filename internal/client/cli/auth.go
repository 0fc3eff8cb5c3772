package cli

import (
	"context"
	"fmt"
	"os"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username, email and password and creates an account.
// On success the server has sent a verification email; the user still has to
// follow the link (or run 'verify') before logging in.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.api.Register(ctx, userName, email, password); err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn("Registered. Check your inbox for the verification link.")
	return nil
}

// Login prompts for credentials and, on success, stores the issued token
// pair in memory for use by refresh, logout and promote.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	pair, err := a.api.Login(ctx, userName, password)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	a.tokens = pair
	a.userName = userName
	printlnFn("Login successful.")
	return nil
}

// Refresh exchanges the current token pair for a fresh one. The previous
// refresh token becomes unusable.
func (a *App) Refresh(ctx context.Context) error {
	if a.tokens == nil {
		printlnFn("Not logged in.")
		return nil
	}

	pair, err := a.api.Refresh(ctx, a.tokens.AccessToken, a.tokens.RefreshToken)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	a.tokens = pair
	printlnFn(fmt.Sprintf("Tokens refreshed, access token valid until %s.",
		pair.AccessExpiresAt.Format("15:04:05")))
	return nil
}

// Logout revokes the session on the server and drops the in-memory tokens.
// The tokens are dropped even when the server call fails.
func (a *App) Logout(ctx context.Context) error {
	if a.tokens == nil {
		printlnFn("Not logged in.")
		return nil
	}

	err := a.api.Logout(ctx, a.tokens.AccessToken)
	a.tokens = nil
	a.userName = ""
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn("Logged out.")
	return nil
}

// Verify prompts for a verification token and confirms the email address.
func (a *App) Verify(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter verification token", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.api.Verify(ctx, token); err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn("Email verified. You can log in now.")
	return nil
}

// Promote grants the admin role to another user. The server rejects the
// call unless the current session carries the admin role.
func (a *App) Promote(ctx context.Context) error {
	if a.tokens == nil {
		printlnFn("Not logged in.")
		return nil
	}

	userName, err := getSimpleText(a.reader, "Enter username to promote", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.api.PromoteAdmin(ctx, a.tokens.AccessToken, userName); err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn("Done.")
	return nil
}

// WhoAmI prints the current session state.
func (a *App) WhoAmI(ctx context.Context) error {
	if a.tokens == nil {
		printlnFn("Not logged in.")
		return nil
	}
	printlnFn(fmt.Sprintf("Logged in as %s, access token expires %s, refresh token expires %s.",
		a.userName,
		a.tokens.AccessExpiresAt.Format("2006-01-02 15:04:05"),
		a.tokens.RefreshExpiresAt.Format("2006-01-02 15:04:05")))
	return nil
}
