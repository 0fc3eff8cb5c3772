// Package db wires the storage backends behind a single repository manager
// so the rest of the server does not care whether records live in
// PostgreSQL or DynamoDB.
package db

import (
	"context"
	"database/sql"

	"github.com/avolkovs/authapi/internal/server/credentials"
	"github.com/avolkovs/authapi/internal/server/profiles"
	"github.com/avolkovs/authapi/internal/server/refreshtokens"
)

// RepositoryManager hands out the per-entity repositories of one backend.
// Conn returns nil for backends that are not SQL-based; RunMigrations is a
// no-op where schema management happens out of band.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Conn() *sql.DB
	Profiles() profiles.Repository
	Credentials() credentials.Repository
	RefreshTokens() refreshtokens.Repository
	Close() error
}
