// Package verification issues and validates single-use email-verification
// tokens carried on the user profile.
package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkovs/authapi/internal/common"
	"github.com/avolkovs/authapi/internal/server/models"
	"github.com/avolkovs/authapi/internal/server/profiles"
)

const tokenEntropyBytes = 64

// Service mints verification tokens onto profiles and redeems them. Lookup
// goes through the store's token index rather than scanning all profiles.
type Service struct {
	profiles profiles.Repository
	validity time.Duration
	now      func() time.Time
}

// NewService constructs a Service with the given token validity window.
func NewService(repo profiles.Repository, validity time.Duration) *Service {
	return &Service{
		profiles: repo,
		validity: validity,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IssueFor sets a fresh token and expiry on the profile and returns the raw
// token. The caller persists the profile; this keeps issuance composable
// with whatever write the caller is already making.
func (s *Service) IssueFor(profile *models.UserProfile) string {
	token := common.MakeRandTokenString(tokenEntropyBytes)
	profile.VerificationToken = token
	profile.VerificationTokenExpiry = s.now().Add(s.validity)
	return token
}

// Validate redeems a token: on match it marks the profile verified, clears
// the token, and persists the change. A wrong or expired token yields
// (nil, nil) with no mutation. A failed persist is an error, never silently
// dropped, since the caller would otherwise report verification that did
// not durably happen.
func (s *Service) Validate(ctx context.Context, token string) (*models.UserProfile, error) {
	if token == "" {
		return nil, nil
	}
	profile, err := s.profiles.GetByVerificationToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error searching verification token: %w", err)
	}
	if profile == nil {
		return nil, nil
	}
	now := s.now()
	if profile.VerificationTokenExpiry.Before(now) {
		return nil, nil
	}

	profile.VerificationToken = ""
	profile.VerificationTokenExpiry = time.Time{}
	profile.EmailVerified = true
	profile.EmailVerifiedAt = now
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("error saving verified profile: %w", err)
	}
	return profile, nil
}
