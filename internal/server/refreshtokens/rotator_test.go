package refreshtokens

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkovs/authapi/internal/server/models"
)

// fakeRepo is an in-memory Repository keyed by token value.
type fakeRepo struct {
	records map[string]*models.RefreshToken
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*models.RefreshToken)}
}

func (f *fakeRepo) GetByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	rec, ok := f.records[token]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRepo) GetByAccessToken(_ context.Context, accessToken string) ([]*models.RefreshToken, error) {
	var out []*models.RefreshToken
	for _, rec := range f.records {
		if rec.AccessToken == accessToken {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, rec *models.RefreshToken) error {
	cp := *rec
	f.records[rec.Token] = &cp
	return nil
}

func (f *fakeRepo) Save(_ context.Context, rec *models.RefreshToken) error {
	cp := *rec
	f.records[rec.Token] = &cp
	return nil
}

func (f *fakeRepo) ListActiveForOwner(_ context.Context, owner string, now time.Time) ([]*models.RefreshToken, error) {
	var out []*models.RefreshToken
	for _, rec := range f.records {
		if rec.Owner == owner && rec.IsActive(now) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) Rotate(_ context.Context, consumed, successor *models.RefreshToken) error {
	rec, ok := f.records[consumed.Token]
	if !ok || rec.Used || rec.Revoked {
		return ErrConsumed
	}
	rec.Used = true
	rec.SuccessorToken = successor.Token
	cp := *successor
	f.records[successor.Token] = &cp
	return nil
}

func (f *fakeRepo) PurgeTerminal(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for token, rec := range f.records {
		if rec.ExpiresAt.Before(cutoff) {
			delete(f.records, token)
			n++
		}
	}
	return n, nil
}

// fakeResolver returns a profile for every known owner key.
type fakeResolver struct {
	profiles map[string]*models.UserProfile
}

func (f *fakeResolver) GetByUsername(_ context.Context, username string) (*models.UserProfile, error) {
	p, ok := f.profiles[username]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func testRotator(repo Repository, now time.Time) *Rotator {
	resolver := &fakeResolver{profiles: map[string]*models.UserProfile{
		"alice": {ID: "u1", Username: "alice", Email: "alice@example.com"},
	}}
	r := NewRotator(repo, resolver)
	r.now = func() time.Time { return now }
	return r
}

func mintStatic(token string) AccessMinter {
	return func(*models.UserProfile) (string, error) { return token, nil }
}

func TestRotatorIssue(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := testRotator(repo, now)

	rec, err := r.Issue(context.Background(), "alice", "access-1", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotEmpty(t, rec.Token)

	// opaque token carries the full configured entropy
	raw, err := base64.RawURLEncoding.DecodeString(rec.Token)
	require.NoError(t, err)
	assert.Len(t, raw, tokenEntropyBytes)

	assert.Equal(t, "alice", rec.Owner)
	assert.Equal(t, "access-1", rec.AccessToken)
	assert.Equal(t, now.Add(time.Hour), rec.ExpiresAt)
	assert.True(t, rec.IsActive(now))

	stored, err := repo.GetByToken(context.Background(), rec.Token)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.Used)
	assert.False(t, stored.Revoked)
}

func TestRotatorIssueEmptyOwner(t *testing.T) {
	r := testRotator(newFakeRepo(), time.Now().UTC())
	_, err := r.Issue(context.Background(), "", "access-1", time.Hour)
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestRotatorRotate(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := testRotator(repo, now)

	issued, err := r.Issue(context.Background(), "alice", "access-1", time.Hour)
	require.NoError(t, err)

	access, successor, err := r.Rotate(context.Background(), "access-1", issued.Token, mintStatic("access-2"), 24*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, successor)
	assert.Equal(t, "access-2", access)
	assert.NotEqual(t, issued.Token, successor.Token)
	assert.Equal(t, "alice", successor.Owner)
	assert.Equal(t, "access-2", successor.AccessToken)
	assert.Equal(t, now.Add(24*time.Hour), successor.ExpiresAt)

	// old record is retained, consumed, and linked to its successor
	old, err := repo.GetByToken(context.Background(), issued.Token)
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.True(t, old.Used)
	assert.Equal(t, successor.Token, old.SuccessorToken)
}

func TestRotatorRotateReuseDetection(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := testRotator(repo, now)

	issued, err := r.Issue(context.Background(), "alice", "access-1", time.Hour)
	require.NoError(t, err)

	_, _, err = r.Rotate(context.Background(), "access-1", issued.Token, mintStatic("access-2"), time.Hour)
	require.NoError(t, err)

	// the same token must never rotate twice
	_, _, err = r.Rotate(context.Background(), "access-1", issued.Token, mintStatic("access-3"), time.Hour)
	assert.ErrorIs(t, err, ErrConsumedOrRevoked)
}

func TestRotatorRotateErrors(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seed := func(repo *fakeRepo, mutate func(*models.RefreshToken)) string {
		rec := &models.RefreshToken{
			Token:       "refresh-1",
			AccessToken: "access-1",
			Owner:       "alice",
			ExpiresAt:   now.Add(time.Hour),
			CreatedAt:   now.Add(-time.Minute),
		}
		if mutate != nil {
			mutate(rec)
		}
		repo.records[rec.Token] = rec
		return rec.Token
	}

	tests := []struct {
		name         string
		accessToken  string
		refreshToken string
		mutate       func(*models.RefreshToken)
		want         error
	}{
		{name: "empty access token", accessToken: "", refreshToken: "refresh-1", want: ErrMissingInput},
		{name: "empty refresh token", accessToken: "access-1", refreshToken: "", want: ErrMissingInput},
		{name: "unknown token", accessToken: "access-1", refreshToken: "missing", want: ErrTokenNotFound},
		{name: "already used", accessToken: "access-1", refreshToken: "refresh-1",
			mutate: func(rec *models.RefreshToken) { rec.Used = true }, want: ErrConsumedOrRevoked},
		{name: "revoked", accessToken: "access-1", refreshToken: "refresh-1",
			mutate: func(rec *models.RefreshToken) { rec.Revoked = true }, want: ErrConsumedOrRevoked},
		{name: "mismatched pair", accessToken: "other-access", refreshToken: "refresh-1", want: ErrTokenMismatch},
		{name: "expired", accessToken: "access-1", refreshToken: "refresh-1",
			mutate: func(rec *models.RefreshToken) { rec.ExpiresAt = now.Add(-time.Second) }, want: ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			seed(repo, tt.mutate)
			r := testRotator(repo, now)
			_, _, err := r.Rotate(context.Background(), tt.accessToken, tt.refreshToken, mintStatic("access-new"), time.Hour)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRotatorRotateExpiryBoundary(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := testRotator(repo, now)

	// a record expiring exactly now is still valid
	repo.records["refresh-1"] = &models.RefreshToken{
		Token:       "refresh-1",
		AccessToken: "access-1",
		Owner:       "alice",
		ExpiresAt:   now,
	}
	_, _, err := r.Rotate(context.Background(), "access-1", "refresh-1", mintStatic("access-2"), time.Hour)
	assert.NoError(t, err)
}

func TestRotatorRotateOwnerNotFound(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := testRotator(repo, now)

	repo.records["refresh-1"] = &models.RefreshToken{
		Token:       "refresh-1",
		AccessToken: "access-1",
		Owner:       "deleted-user",
		ExpiresAt:   now.Add(time.Hour),
	}
	_, _, err := r.Rotate(context.Background(), "access-1", "refresh-1", mintStatic("access-2"), time.Hour)
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestRotatorRotateMintFailure(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := testRotator(repo, now)

	issued, err := r.Issue(context.Background(), "alice", "access-1", time.Hour)
	require.NoError(t, err)

	mintErr := errors.New("key unavailable")
	_, _, err = r.Rotate(context.Background(), "access-1", issued.Token,
		func(*models.UserProfile) (string, error) { return "", mintErr }, time.Hour)
	assert.ErrorIs(t, err, mintErr)

	// a failed mint must not consume the presented token
	rec, err := repo.GetByToken(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.False(t, rec.Used)
}

func TestRotatorRevokeAllForAccessToken(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := testRotator(repo, now)

	repo.records["r1"] = &models.RefreshToken{Token: "r1", AccessToken: "access-1", Owner: "alice", ExpiresAt: now.Add(time.Hour)}
	repo.records["r2"] = &models.RefreshToken{Token: "r2", AccessToken: "access-1", Owner: "alice", ExpiresAt: now.Add(time.Hour)}
	repo.records["r3"] = &models.RefreshToken{Token: "r3", AccessToken: "access-1", Owner: "alice", ExpiresAt: now.Add(time.Hour), Used: true}
	repo.records["r4"] = &models.RefreshToken{Token: "r4", AccessToken: "other", Owner: "alice", ExpiresAt: now.Add(time.Hour)}

	count, err := r.RevokeAllForAccessToken(context.Background(), "access-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, token := range []string{"r1", "r2"} {
		rec := repo.records[token]
		assert.True(t, rec.Revoked)
		assert.Equal(t, revokeReasonLogout, rec.RevokedReason)
		assert.Equal(t, now, rec.RevokedAt)
	}
	// terminal and unrelated records are untouched
	assert.False(t, repo.records["r3"].Revoked)
	assert.False(t, repo.records["r4"].Revoked)
}

func TestRotatorRevokeAllForAccessTokenEmpty(t *testing.T) {
	r := testRotator(newFakeRepo(), time.Now().UTC())
	_, err := r.RevokeAllForAccessToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestRotatorRevokedTokenCannotRotate(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := testRotator(repo, now)

	issued, err := r.Issue(context.Background(), "alice", "access-1", time.Hour)
	require.NoError(t, err)

	_, err = r.RevokeAllForAccessToken(context.Background(), "access-1")
	require.NoError(t, err)

	_, _, err = r.Rotate(context.Background(), "access-1", issued.Token, mintStatic("access-2"), time.Hour)
	assert.ErrorIs(t, err, ErrConsumedOrRevoked)
}

func TestRotatorActiveForUser(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := testRotator(repo, now)

	repo.records["r1"] = &models.RefreshToken{Token: "r1", Owner: "alice", ExpiresAt: now.Add(time.Hour)}
	repo.records["r2"] = &models.RefreshToken{Token: "r2", Owner: "alice", ExpiresAt: now.Add(-time.Hour)}
	repo.records["r3"] = &models.RefreshToken{Token: "r3", Owner: "alice", ExpiresAt: now.Add(time.Hour), Used: true}
	repo.records["r4"] = &models.RefreshToken{Token: "r4", Owner: "bob", ExpiresAt: now.Add(time.Hour)}

	records, err := r.ActiveForUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].Token)
}

func TestRotatorPurgeTerminal(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := testRotator(repo, now)

	repo.records["old"] = &models.RefreshToken{Token: "old", ExpiresAt: now.Add(-48 * time.Hour), Used: true}
	repo.records["recent"] = &models.RefreshToken{Token: "recent", ExpiresAt: now.Add(-time.Hour), Used: true}
	repo.records["live"] = &models.RefreshToken{Token: "live", ExpiresAt: now.Add(time.Hour)}

	n, err := r.PurgeTerminal(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NotContains(t, repo.records, "old")
	assert.Contains(t, repo.records, "recent")
	assert.Contains(t, repo.records, "live")
}

func TestRotatorPurgeTerminalDisabled(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.records["old"] = &models.RefreshToken{Token: "old", ExpiresAt: now.Add(-48 * time.Hour), Used: true}
	r := testRotator(repo, now)

	n, err := r.PurgeTerminal(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, repo.records, "old")
}
