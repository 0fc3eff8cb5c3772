// Package refreshtokens holds the refresh-token store contract, its
// PostgreSQL and DynamoDB implementations, and the Rotator — the state
// machine that issues, single-use-consumes, and revokes refresh tokens.
package refreshtokens

import (
	"context"
	"errors"
	"time"

	"github.com/avolkovs/authapi/internal/server/models"
)

// ErrConsumed is returned by Repository.Rotate when the presented record was
// already used or revoked by the time the conditional write landed. At most
// one concurrent rotation of the same token can succeed.
var ErrConsumed = errors.New("refresh token already consumed")

// Repository is the keyed refresh-token store.
//
// GetByToken returns (nil, nil) when the token is unknown. Records are never
// deleted on consumption; terminal records stay behind for audit and reuse
// detection unless PurgeTerminal removes them under an explicit retention
// policy.
type Repository interface {
	GetByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// GetByAccessToken returns every record paired with the given access
	// token; multiple records can share one across rotations.
	GetByAccessToken(ctx context.Context, accessToken string) ([]*models.RefreshToken, error)

	Create(ctx context.Context, record *models.RefreshToken) error

	// Save upserts the record keyed by its token value.
	Save(ctx context.Context, record *models.RefreshToken) error

	ListActiveForOwner(ctx context.Context, owner string, now time.Time) ([]*models.RefreshToken, error)

	// Rotate persists the successor and marks the consumed record used in
	// one atomic unit, guarded so a record is consumed at most once.
	// Losing the race surfaces as ErrConsumed.
	Rotate(ctx context.Context, consumed, successor *models.RefreshToken) error

	// PurgeTerminal deletes records whose expiry passed before the cutoff.
	// Retention is a policy decision owned by configuration, not by this
	// store.
	PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error)
}
