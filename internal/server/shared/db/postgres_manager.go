package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/avolkovs/authapi/internal/server/credentials"
	"github.com/avolkovs/authapi/internal/server/migrations"
	"github.com/avolkovs/authapi/internal/server/profiles"
	"github.com/avolkovs/authapi/internal/server/refreshtokens"
)

// PostgresRepositoryManager backs every repository with one PostgreSQL
// connection pool.
type PostgresRepositoryManager struct {
	db            *sql.DB
	profiles      profiles.Repository
	credentials   credentials.Repository
	refreshTokens refreshtokens.Repository
}

// NewPostgresRepositoryManager opens the pool and constructs the
// repositories. The connection is verified lazily on first use.
func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &PostgresRepositoryManager{
		db:            db,
		profiles:      profiles.NewPostgresRepository(db),
		credentials:   credentials.NewPostgresRepository(db),
		refreshTokens: refreshtokens.NewPostgresRepository(db),
	}, nil
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, m.db, ".")
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Profiles() profiles.Repository {
	return m.profiles
}

func (m *PostgresRepositoryManager) Credentials() credentials.Repository {
	return m.credentials
}

func (m *PostgresRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
