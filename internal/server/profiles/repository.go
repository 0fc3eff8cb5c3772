// Package profiles declares the user-profile store contract and its
// PostgreSQL and DynamoDB implementations.
package profiles

import (
	"context"

	"github.com/avolkovs/authapi/internal/server/models"
)

// Repository is the keyed profile store the auth core consumes.
//
// Username and email lookups are case-normalized by the implementation.
// All Get methods return (nil, nil) when no record matches; an error means
// the store itself failed.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	GetByUsername(ctx context.Context, username string) (*models.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*models.UserProfile, error)

	// GetByVerificationToken resolves a profile by its pending email
	// verification token. Tokens are indexed directly; no table scan.
	GetByVerificationToken(ctx context.Context, token string) (*models.UserProfile, error)

	Create(ctx context.Context, profile *models.UserProfile) error
	Update(ctx context.Context, profile *models.UserProfile) error
	Delete(ctx context.Context, id string) error

	// ListAll returns every profile. Administrative use only; not on any
	// request hot path.
	ListAll(ctx context.Context) ([]*models.UserProfile, error)
}
