package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avolkovs/authapi/internal/common"
	"github.com/avolkovs/authapi/internal/dbx"
	"github.com/avolkovs/authapi/internal/server/models"
)

const profileColumns = `id, username, username_original, email,
	       is_user_role, is_admin_role,
	       email_verified, email_verified_at,
	       verification_token, verification_token_expiry,
	       created_at`

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE username = $1`
	return r.getOne(ctx, query, models.NormalizeKey(username))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE email = $1`
	return r.getOne(ctx, query, models.NormalizeKey(email))
}

func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*models.UserProfile, error) {
	if token == "" {
		return nil, nil
	}
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE verification_token = $1`
	return r.getOne(ctx, query, token)
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles
			(id, username, username_original, email,
			 is_user_role, is_admin_role,
			 email_verified, email_verified_at,
			 verification_token, verification_token_expiry,
			 created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, models.NormalizeKey(p.Username), p.UsernameOriginal, models.NormalizeKey(p.Email),
		p.IsUserRole, p.IsAdminRole,
		p.EmailVerified, nullTime(p.EmailVerifiedAt),
		p.VerificationToken, nullTime(p.VerificationTokenExpiry),
		p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.UserProfile) error {
	query := `
		UPDATE user_profiles
		SET username = $2, username_original = $3, email = $4,
		    is_user_role = $5, is_admin_role = $6,
		    email_verified = $7, email_verified_at = $8,
		    verification_token = $9, verification_token_expiry = $10
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		p.ID, models.NormalizeKey(p.Username), p.UsernameOriginal, models.NormalizeKey(p.Email),
		p.IsUserRole, p.IsAdminRole,
		p.EmailVerified, nullTime(p.EmailVerifiedAt),
		p.VerificationToken, nullTime(p.VerificationTokenExpiry))
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*models.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	p, err := scanProfile(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return p, nil
}

func scanProfile(scan func(dest ...any) error) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	var verifiedAt, tokenExpiry sql.NullTime
	err := scan(&p.ID, &p.Username, &p.UsernameOriginal, &p.Email,
		&p.IsUserRole, &p.IsAdminRole,
		&p.EmailVerified, &verifiedAt,
		&p.VerificationToken, &tokenExpiry,
		&p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		p.EmailVerifiedAt = verifiedAt.Time
	}
	if tokenExpiry.Valid {
		p.VerificationTokenExpiry = tokenExpiry.Time
	}
	return p, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
