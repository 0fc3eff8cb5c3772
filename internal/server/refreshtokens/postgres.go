package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avolkovs/authapi/internal/dbx"
	"github.com/avolkovs/authapi/internal/server/models"
)

const tokenColumns = `token, access_token, owner, expires_at,
	       used, revoked, revoked_reason, revoked_at,
	       successor_token, created_at`

// PostgresRepository implements Repository over *sql.DB. It holds the full
// handle (not just DBTX) because Rotate opens its own transaction.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to the given handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if token == "" {
		return nil, nil
	}
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token = $1`
	row := r.db.QueryRowContext(ctx, query, token)
	rec, err := scanToken(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) GetByAccessToken(ctx context.Context, accessToken string) ([]*models.RefreshToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE access_token = $1`
	return r.list(ctx, query, accessToken)
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.RefreshToken) error {
	return createToken(ctx, r.db, rec)
}

func (r *PostgresRepository) Save(ctx context.Context, rec *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens
			(token, access_token, owner, expires_at,
			 used, revoked, revoked_reason, revoked_at,
			 successor_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token) DO UPDATE
		SET used = EXCLUDED.used,
		    revoked = EXCLUDED.revoked,
		    revoked_reason = EXCLUDED.revoked_reason,
		    revoked_at = EXCLUDED.revoked_at,
		    successor_token = EXCLUDED.successor_token
	`
	_, err := r.db.ExecContext(ctx, query, tokenArgs(rec)...)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActiveForOwner(ctx context.Context, owner string, now time.Time) ([]*models.RefreshToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM refresh_tokens
		WHERE owner = $1 AND used = FALSE AND revoked = FALSE AND expires_at > $2
	`
	return r.list(ctx, query, owner, now)
}

func (r *PostgresRepository) Rotate(ctx context.Context, consumed, successor *models.RefreshToken) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE refresh_tokens
			SET used = TRUE, successor_token = $2
			WHERE token = $1 AND used = FALSE AND revoked = FALSE
		`, consumed.Token, successor.Token)
		if err != nil {
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		if n == 0 {
			return ErrConsumed
		}
		return createToken(ctx, tx, successor)
	})
}

func (r *PostgresRepository) PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*models.RefreshToken
	for rows.Next() {
		rec, err := scanToken(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	return out, nil
}

func createToken(ctx context.Context, db dbx.DBTX, rec *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens
			(token, access_token, owner, expires_at,
			 used, revoked, revoked_reason, revoked_at,
			 successor_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := db.ExecContext(ctx, query, tokenArgs(rec)...); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func tokenArgs(rec *models.RefreshToken) []any {
	return []any{
		rec.Token, rec.AccessToken, rec.Owner, rec.ExpiresAt,
		rec.Used, rec.Revoked, rec.RevokedReason, nullTime(rec.RevokedAt),
		rec.SuccessorToken, rec.CreatedAt,
	}
}

func scanToken(scan func(dest ...any) error) (*models.RefreshToken, error) {
	rec := &models.RefreshToken{}
	var revokedAt sql.NullTime
	err := scan(&rec.Token, &rec.AccessToken, &rec.Owner, &rec.ExpiresAt,
		&rec.Used, &rec.Revoked, &rec.RevokedReason, &revokedAt,
		&rec.SuccessorToken, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		rec.RevokedAt = revokedAt.Time
	}
	return rec, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
