package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avolkovs/authapi/internal/common"
	"github.com/avolkovs/authapi/internal/dbx"
	"github.com/avolkovs/authapi/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByUserAndProvider(ctx context.Context, userID string, provider models.AuthProvider) (*models.Credential, error) {
	query := `
		SELECT user_id, provider, credential_type, credential_value, created_at
		FROM credentials
		WHERE user_id = $1 AND provider = $2
	`
	c := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, userID, string(provider)).
		Scan(&c.UserID, &c.Provider, &c.Type, &c.Value, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Credential) error {
	query := `
		INSERT INTO credentials (user_id, provider, credential_type, credential_value, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.UserID, string(c.Provider), string(c.Type), c.Value, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Credential) error {
	query := `
		UPDATE credentials
		SET credential_type = $3, credential_value = $4
		WHERE user_id = $1 AND provider = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		c.UserID, string(c.Provider), string(c.Type), c.Value)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, provider models.AuthProvider) error {
	query := `DELETE FROM credentials WHERE user_id = $1 AND provider = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, string(provider)); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListAllForUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	query := `
		SELECT user_id, provider, credential_type, credential_value, created_at
		FROM credentials
		WHERE user_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*models.Credential
	for rows.Next() {
		c := &models.Credential{}
		if err := rows.Scan(&c.UserID, &c.Provider, &c.Type, &c.Value, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	return out, nil
}
