package refreshtokens

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/avolkovs/authapi/internal/common"
	"github.com/avolkovs/authapi/internal/server/models"
)

// Refresh token values carry 64 bytes of entropy before encoding.
const tokenEntropyBytes = 64

// Reason recorded on records revoked through RevokeAllForAccessToken.
const revokeReasonLogout = "logout"

// Rotation failure classes. Each rejection reason is distinct; refresh
// tokens are machine-held secrets, so precise errors carry no enumeration
// risk the way login failures do.
var (
	ErrMissingInput      = errors.New("access token and refresh token are required")
	ErrTokenNotFound     = errors.New("refresh token not found")
	ErrConsumedOrRevoked = errors.New("refresh token already used or revoked")
	ErrTokenMismatch     = errors.New("refresh token does not match access token")
	ErrExpired           = errors.New("refresh token expired")
	ErrOwnerNotFound     = errors.New("refresh token owner not found")
)

// ProfileResolver looks up the profile owning a refresh token. Satisfied by
// the profile repository.
type ProfileResolver interface {
	GetByUsername(ctx context.Context, username string) (*models.UserProfile, error)
}

// AccessMinter issues a new access token for the resolved owner during
// rotation.
type AccessMinter func(profile *models.UserProfile) (string, error)

// Rotator drives the refresh-token state machine: Active records are
// consumed exactly once on rotation, or revoked on logout. Terminal records
// never transition back.
type Rotator struct {
	repo     Repository
	profiles ProfileResolver
	now      func() time.Time
}

// NewRotator constructs a Rotator over the given store.
func NewRotator(repo Repository, profiles ProfileResolver) *Rotator {
	return &Rotator{
		repo:     repo,
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Issue mints a fresh random token, persists it as an Active record paired
// with the given access token, and returns the record.
func (r *Rotator) Issue(ctx context.Context, owner, accessToken string, lifetime time.Duration) (*models.RefreshToken, error) {
	if owner == "" {
		return nil, ErrMissingInput
	}
	now := r.now()
	rec := &models.RefreshToken{
		Token:       common.MakeRandTokenString(tokenEntropyBytes),
		AccessToken: accessToken,
		Owner:       owner,
		ExpiresAt:   now.Add(lifetime),
		CreatedAt:   now,
	}
	if err := r.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("error creating refresh token: %w", err)
	}
	return rec, nil
}

// Rotate exchanges a presented access/refresh pair for a new pair. The
// checks run in a fixed order so each failure mode maps to exactly one
// error: missing input, unknown token, reuse of a consumed or revoked token,
// a pair from two different sessions, expiry, a vanished owner. On success
// mint issues the new access token and the consume-and-create happens in a
// single atomic store write; a concurrent rotation losing that race
// surfaces as ErrConsumedOrRevoked, same as any other reuse.
//
// The record's expiry boundary instant itself is still valid: a token
// expires strictly when expiry < now.
func (r *Rotator) Rotate(ctx context.Context, presentedAccessToken, presentedRefreshToken string, mint AccessMinter, lifetime time.Duration) (string, *models.RefreshToken, error) {
	if presentedAccessToken == "" || presentedRefreshToken == "" {
		return "", nil, ErrMissingInput
	}

	rec, err := r.repo.GetByToken(ctx, presentedRefreshToken)
	if err != nil {
		return "", nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if rec == nil {
		return "", nil, ErrTokenNotFound
	}
	if rec.Used || rec.Revoked {
		return "", nil, ErrConsumedOrRevoked
	}
	if subtle.ConstantTimeCompare([]byte(rec.AccessToken), []byte(presentedAccessToken)) != 1 {
		return "", nil, ErrTokenMismatch
	}
	now := r.now()
	if rec.IsExpired(now) {
		return "", nil, ErrExpired
	}

	profile, err := r.profiles.GetByUsername(ctx, rec.Owner)
	if err != nil {
		return "", nil, fmt.Errorf("error resolving token owner: %w", err)
	}
	if profile == nil {
		return "", nil, ErrOwnerNotFound
	}

	newAccessToken, err := mint(profile)
	if err != nil {
		return "", nil, fmt.Errorf("error issuing access token: %w", err)
	}

	successor := &models.RefreshToken{
		Token:       common.MakeRandTokenString(tokenEntropyBytes),
		AccessToken: newAccessToken,
		Owner:       rec.Owner,
		ExpiresAt:   now.Add(lifetime),
		CreatedAt:   now,
	}
	if err := r.repo.Rotate(ctx, rec, successor); err != nil {
		if errors.Is(err, ErrConsumed) {
			return "", nil, ErrConsumedOrRevoked
		}
		return "", nil, fmt.Errorf("error rotating refresh token: %w", err)
	}
	return newAccessToken, successor, nil
}

// RevokeAllForAccessToken marks every non-terminal record paired with the
// given access token revoked. Used at logout. Already-terminal records are
// left untouched.
func (r *Rotator) RevokeAllForAccessToken(ctx context.Context, accessToken string) (int, error) {
	if accessToken == "" {
		return 0, ErrMissingInput
	}
	records, err := r.repo.GetByAccessToken(ctx, accessToken)
	if err != nil {
		return 0, fmt.Errorf("error searching refresh tokens: %w", err)
	}
	return r.revoke(ctx, records, revokeReasonLogout)
}

// RevokeAllForOwner marks every non-terminal record belonging to the owner
// key revoked, with the given reason. Administrative path.
func (r *Rotator) RevokeAllForOwner(ctx context.Context, owner, reason string) (int, error) {
	if owner == "" {
		return 0, ErrMissingInput
	}
	records, err := r.repo.ListActiveForOwner(ctx, owner, r.now())
	if err != nil {
		return 0, fmt.Errorf("error searching refresh tokens: %w", err)
	}
	return r.revoke(ctx, records, reason)
}

func (r *Rotator) revoke(ctx context.Context, records []*models.RefreshToken, reason string) (int, error) {
	now := r.now()
	count := 0
	for _, rec := range records {
		if rec.Used || rec.Revoked {
			continue
		}
		rec.Revoked = true
		rec.RevokedReason = reason
		rec.RevokedAt = now
		if err := r.repo.Save(ctx, rec); err != nil {
			return count, fmt.Errorf("error revoking refresh token: %w", err)
		}
		count++
	}
	return count, nil
}

// ActiveForUser returns the owner's currently active records. Visibility
// path, not on the rotation hot path.
func (r *Rotator) ActiveForUser(ctx context.Context, owner string) ([]*models.RefreshToken, error) {
	if owner == "" {
		return nil, ErrMissingInput
	}
	records, err := r.repo.ListActiveForOwner(ctx, owner, r.now())
	if err != nil {
		return nil, fmt.Errorf("error searching refresh tokens: %w", err)
	}
	return records, nil
}

// PurgeTerminal removes records whose expiry passed more than retention ago.
// A zero retention disables purging entirely.
func (r *Rotator) PurgeTerminal(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return r.repo.PurgeTerminal(ctx, r.now().Add(-retention))
}
