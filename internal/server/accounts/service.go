// Package accounts composes the credential, token, and verification services
// into the user-facing account operations: register, login, refresh, logout,
// email verification, and admin promotion.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/avolkovs/authapi/internal/logging"
	"github.com/avolkovs/authapi/internal/server/auth"
	"github.com/avolkovs/authapi/internal/server/credentials"
	"github.com/avolkovs/authapi/internal/server/email"
	"github.com/avolkovs/authapi/internal/server/models"
	"github.com/avolkovs/authapi/internal/server/password"
	"github.com/avolkovs/authapi/internal/server/profiles"
	"github.com/avolkovs/authapi/internal/server/refreshtokens"
	"github.com/avolkovs/authapi/internal/server/verification"
)

// The login message is deliberately identical for unknown usernames and
// wrong passwords so responses cannot be used to enumerate accounts.
const msgInvalidCredentials = "Invalid credentials."

// TokenPair bundles a short-lived access token and its paired refresh token.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Service is the authentication orchestrator.
type Service struct {
	profiles    profiles.Repository
	credentials credentials.Repository
	rotator     *refreshtokens.Rotator
	verifier    *verification.Service
	issuer      *auth.Issuer
	sender      email.Sender
	logger      logging.Logger

	// sessionTTL bounds the refresh token issued at login; rotationTTL the
	// longer-lived successors issued on each rotation.
	sessionTTL  time.Duration
	rotationTTL time.Duration

	// verifyURL is the externally reachable base of the verification
	// endpoint; the token is appended as a query parameter.
	verifyURL string
}

// NewService wires the orchestrator from its collaborators.
func NewService(
	profileRepo profiles.Repository,
	credentialRepo credentials.Repository,
	rotator *refreshtokens.Rotator,
	verifier *verification.Service,
	issuer *auth.Issuer,
	sender email.Sender,
	logger logging.Logger,
	sessionTTL, rotationTTL time.Duration,
	verifyURL string,
) *Service {
	return &Service{
		profiles:    profileRepo,
		credentials: credentialRepo,
		rotator:     rotator,
		verifier:    verifier,
		issuer:      issuer,
		sender:      sender,
		logger:      logger,
		sessionTTL:  sessionTTL,
		rotationTTL: rotationTTL,
		verifyURL:   verifyURL,
	}
}

// Register creates a profile and its password credential, and triggers the
// verification mail. The three writes are independent; a duplicate check
// runs first so a half-registered account from an earlier failure can be
// reported as a conflict rather than silently overwritten.
func (s *Service) Register(ctx context.Context, username, emailAddr, pw string) Result {
	if !validUsername(username) {
		return badRequest(fmt.Sprintf("Username must be between %d and %d characters.", usernameMinLen, usernameMaxLen))
	}
	if !validEmail(emailAddr) {
		return badRequest("A valid email address is required.")
	}
	if !validPassword(pw) {
		return badRequest(fmt.Sprintf("Password must be at least %d characters and contain a letter and a digit.", passwordMinLen))
	}

	key := models.NormalizeKey(username)
	emailKey := models.NormalizeKey(emailAddr)

	existing, err := s.profiles.GetByUsername(ctx, key)
	if err != nil {
		s.logger.Error(ctx, "registration lookup failed", "username", key, "error", err)
		return internal()
	}
	if existing != nil {
		return conflict("Username is already taken.")
	}
	existing, err = s.profiles.GetByEmail(ctx, emailKey)
	if err != nil {
		s.logger.Error(ctx, "registration lookup failed", "email", emailKey, "error", err)
		return internal()
	}
	if existing != nil {
		return conflict("Email is already registered.")
	}

	profile := &models.UserProfile{
		ID:               uuid.NewString(),
		Username:         key,
		UsernameOriginal: username,
		Email:            emailKey,
		IsUserRole:       true,
		CreatedAt:        time.Now().UTC(),
	}
	token := s.verifier.IssueFor(profile)

	if err := s.profiles.Create(ctx, profile); err != nil {
		s.logger.Error(ctx, "profile creation failed", "username", key, "error", err)
		return internal()
	}

	hash, err := password.Hash(pw)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "username", key, "error", err)
		return internal()
	}
	cred := &models.Credential{
		UserID:    profile.ID,
		Provider:  models.ProviderPassword,
		Type:      models.CredentialTypePassword,
		Value:     hash,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.credentials.Create(ctx, cred); err != nil {
		s.logger.Error(ctx, "credential creation failed", "username", key, "error", err)
		return internal()
	}

	// mail delivery is best-effort; the account exists either way and the
	// token can be re-sent out of band
	link := s.verifyURL + "?token=" + url.QueryEscape(token)
	if err := s.sender.SendVerification(ctx, profile.Email, profile.UsernameOriginal, link); err != nil {
		s.logger.Error(ctx, "verification mail delivery failed", "username", key, "error", err)
	}

	return success("Registration successful. Please check your email to verify your account.")
}

// Login verifies a username/password pair and issues a token pair. The
// response never distinguishes an unknown username from a wrong password.
func (s *Service) Login(ctx context.Context, username, pw string) (Result, *TokenPair) {
	if username == "" || pw == "" {
		return badRequest("Username and password are required."), nil
	}

	profile, err := s.profiles.GetByUsername(ctx, models.NormalizeKey(username))
	if err != nil {
		s.logger.Error(ctx, "login lookup failed", "username", models.NormalizeKey(username), "error", err)
		return internal(), nil
	}
	if profile == nil {
		return unauthorized(msgInvalidCredentials), nil
	}
	if !profile.EmailVerified {
		return unauthorized("Email not verified."), nil
	}

	cred, err := s.credentials.GetByUserAndProvider(ctx, profile.ID, models.ProviderPassword)
	if err != nil {
		s.logger.Error(ctx, "credential lookup failed", "username", profile.Username, "error", err)
		return internal(), nil
	}
	if cred == nil || !password.Verify(pw, cred.Value) {
		return unauthorized(msgInvalidCredentials), nil
	}

	access, err := s.issuer.IssueAccessToken(auth.UserClaims(profile))
	if err != nil {
		s.logger.Error(ctx, "access token issuance failed", "username", profile.Username, "error", err)
		return internal(), nil
	}
	refresh, err := s.rotator.Issue(ctx, profile.Username, access.Token, s.sessionTTL)
	if err != nil {
		s.logger.Error(ctx, "refresh token issuance failed", "username", profile.Username, "error", err)
		return internal(), nil
	}

	s.logger.Info(ctx, "user logged in", "username", profile.Username)
	return success("Login successful."), &TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
	}
}

// Refresh exchanges an access/refresh pair for a new pair. Every rotation
// rejection maps to a forbidden outcome with its specific reason.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (Result, *TokenPair) {
	var minted *auth.TokenResult
	mint := func(p *models.UserProfile) (string, error) {
		res, err := s.issuer.IssueAccessToken(auth.UserClaims(p))
		if err != nil {
			return "", err
		}
		minted = res
		return res.Token, nil
	}

	newAccess, successor, err := s.rotator.Rotate(ctx, accessToken, refreshToken, mint, s.rotationTTL)
	if err != nil {
		switch {
		case errors.Is(err, refreshtokens.ErrMissingInput):
			return badRequest(err.Error()), nil
		case errors.Is(err, refreshtokens.ErrTokenNotFound),
			errors.Is(err, refreshtokens.ErrConsumedOrRevoked),
			errors.Is(err, refreshtokens.ErrTokenMismatch),
			errors.Is(err, refreshtokens.ErrExpired),
			errors.Is(err, refreshtokens.ErrOwnerNotFound):
			return forbidden(err.Error()), nil
		default:
			s.logger.Error(ctx, "token rotation failed", "error", err)
			return internal(), nil
		}
	}

	return success("Token refreshed."), &TokenPair{
		AccessToken:      newAccess,
		AccessExpiresAt:  minted.ExpiresAt,
		RefreshToken:     successor.Token,
		RefreshExpiresAt: successor.ExpiresAt,
	}
}

// Logout revokes every refresh token paired with the presented access
// token. Revoking nothing is still a successful logout.
func (s *Service) Logout(ctx context.Context, accessToken string) Result {
	count, err := s.rotator.RevokeAllForAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, refreshtokens.ErrMissingInput) {
			return badRequest("Access token is required.")
		}
		s.logger.Error(ctx, "logout revocation failed", "error", err)
		return internal()
	}
	s.logger.Info(ctx, "user logged out", "revoked", count)
	return success("Logged out.")
}

// Verify redeems an email-verification token.
func (s *Service) Verify(ctx context.Context, token string) Result {
	profile, err := s.verifier.Validate(ctx, token)
	if err != nil {
		s.logger.Error(ctx, "verification failed", "error", err)
		return internal()
	}
	if profile == nil {
		return badRequest("Invalid or expired verification token.")
	}
	s.logger.Info(ctx, "email verified", "username", profile.Username)
	return success("Email verified. You can now log in.")
}

// PromoteAdmin grants the admin role to an existing user. Promoting an
// existing admin is reported as success with a notice rather than an error.
func (s *Service) PromoteAdmin(ctx context.Context, username string) Result {
	if username == "" {
		return badRequest("Username is required.")
	}
	profile, err := s.profiles.GetByUsername(ctx, models.NormalizeKey(username))
	if err != nil {
		s.logger.Error(ctx, "admin promotion lookup failed", "username", username, "error", err)
		return internal()
	}
	if profile == nil {
		return badRequest("User not found.")
	}
	if profile.IsAdminRole {
		return success("User is already an admin.")
	}
	profile.IsAdminRole = true
	if err := s.profiles.Update(ctx, profile); err != nil {
		s.logger.Error(ctx, "admin promotion failed", "username", profile.Username, "error", err)
		return internal()
	}
	s.logger.Info(ctx, "user promoted to admin", "username", profile.Username)
	return success("User promoted to admin.")
}

// Exists reports whether a profile with the given username exists.
func (s *Service) Exists(ctx context.Context, username string) (bool, error) {
	profile, err := s.profiles.GetByUsername(ctx, models.NormalizeKey(username))
	if err != nil {
		return false, err
	}
	return profile != nil, nil
}

// IsAdmin reports whether the given user carries the admin role.
func (s *Service) IsAdmin(ctx context.Context, username string) (bool, error) {
	profile, err := s.profiles.GetByUsername(ctx, models.NormalizeKey(username))
	if err != nil {
		return false, err
	}
	return profile != nil && profile.IsAdminRole, nil
}

// GetProfile returns the profile for a normalized username, or nil when
// absent.
func (s *Service) GetProfile(ctx context.Context, username string) (*models.UserProfile, error) {
	return s.profiles.GetByUsername(ctx, models.NormalizeKey(username))
}
