package verification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkovs/authapi/internal/server/models"
)

// fakeProfiles implements just enough of profiles.Repository for these tests.
type fakeProfiles struct {
	byToken   map[string]*models.UserProfile
	updateErr error
	updated   *models.UserProfile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byToken: make(map[string]*models.UserProfile)}
}

func (f *fakeProfiles) GetByID(context.Context, string) (*models.UserProfile, error) {
	return nil, nil
}

func (f *fakeProfiles) GetByUsername(context.Context, string) (*models.UserProfile, error) {
	return nil, nil
}

func (f *fakeProfiles) GetByEmail(context.Context, string) (*models.UserProfile, error) {
	return nil, nil
}

func (f *fakeProfiles) GetByVerificationToken(_ context.Context, token string) (*models.UserProfile, error) {
	p, ok := f.byToken[token]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (f *fakeProfiles) Create(context.Context, *models.UserProfile) error { return nil }

func (f *fakeProfiles) Update(_ context.Context, p *models.UserProfile) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = p
	return nil
}

func (f *fakeProfiles) Delete(context.Context, string) error { return nil }

func (f *fakeProfiles) ListAll(context.Context) ([]*models.UserProfile, error) { return nil, nil }

func testService(repo *fakeProfiles, now time.Time) *Service {
	s := NewService(repo, 24*time.Hour)
	s.now = func() time.Time { return now }
	return s
}

func TestIssueFor(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := testService(newFakeProfiles(), now)

	profile := &models.UserProfile{ID: "u1"}
	token := s.IssueFor(profile)

	assert.NotEmpty(t, token)
	assert.Equal(t, token, profile.VerificationToken)
	assert.Equal(t, now.Add(24*time.Hour), profile.VerificationTokenExpiry)
	assert.False(t, strings.ContainsAny(token, "+/="))
}

func TestIssueForUniqueTokens(t *testing.T) {
	s := testService(newFakeProfiles(), time.Now().UTC())
	t1 := s.IssueFor(&models.UserProfile{})
	t2 := s.IssueFor(&models.UserProfile{})
	assert.NotEqual(t, t1, t2)
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeProfiles()
	repo.byToken["tok"] = &models.UserProfile{
		ID:                      "u1",
		VerificationToken:       "tok",
		VerificationTokenExpiry: now.Add(time.Hour),
	}
	s := testService(repo, now)

	profile, err := s.Validate(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, now, profile.EmailVerifiedAt)
	assert.Empty(t, profile.VerificationToken)
	assert.True(t, profile.VerificationTokenExpiry.IsZero())
	assert.Same(t, profile, repo.updated)
}

func TestValidateNoMatch(t *testing.T) {
	repo := newFakeProfiles()
	s := testService(repo, time.Now().UTC())

	profile, err := s.Validate(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, profile)
	assert.Nil(t, repo.updated)
}

func TestValidateEmptyToken(t *testing.T) {
	s := testService(newFakeProfiles(), time.Now().UTC())
	profile, err := s.Validate(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestValidateExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeProfiles()
	repo.byToken["tok"] = &models.UserProfile{
		ID:                      "u1",
		VerificationToken:       "tok",
		VerificationTokenExpiry: now.Add(-time.Second),
	}
	s := testService(repo, now)

	profile, err := s.Validate(context.Background(), "tok")
	require.NoError(t, err)
	assert.Nil(t, profile)
	// no mutation on an expired token
	assert.False(t, repo.byToken["tok"].EmailVerified)
	assert.Nil(t, repo.updated)
}

func TestValidateExpiryBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeProfiles()
	repo.byToken["tok"] = &models.UserProfile{
		ID:                      "u1",
		VerificationToken:       "tok",
		VerificationTokenExpiry: now,
	}
	s := testService(repo, now)

	profile, err := s.Validate(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.True(t, profile.EmailVerified)
}

func TestValidateSaveFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeProfiles()
	repo.byToken["tok"] = &models.UserProfile{
		ID:                      "u1",
		VerificationToken:       "tok",
		VerificationTokenExpiry: now.Add(time.Hour),
	}
	repo.updateErr = errors.New("connection reset")
	s := testService(repo, now)

	profile, err := s.Validate(context.Background(), "tok")
	assert.Error(t, err)
	assert.Nil(t, profile)
}
