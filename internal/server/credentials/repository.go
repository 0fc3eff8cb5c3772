// Package credentials declares the per-provider credential store contract
// and its PostgreSQL and DynamoDB implementations.
package credentials

import (
	"context"

	"github.com/avolkovs/authapi/internal/server/models"
)

// Repository stores one credential per (user id, provider) pair.
//
// GetByUserAndProvider returns (nil, nil) when no record matches. Create
// rejects a duplicate key with common.ErrorAlreadyExists instead of
// overwriting.
type Repository interface {
	GetByUserAndProvider(ctx context.Context, userID string, provider models.AuthProvider) (*models.Credential, error)
	Create(ctx context.Context, cred *models.Credential) error
	Update(ctx context.Context, cred *models.Credential) error
	Delete(ctx context.Context, userID string, provider models.AuthProvider) error
	ListAllForUser(ctx context.Context, userID string) ([]*models.Credential, error)
}
