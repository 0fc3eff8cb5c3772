// Package auth mints and verifies the signed access tokens of the service.
// Tokens are self-contained RS256 JWTs: any relying party holding the public
// key can verify them without a store lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avolkovs/authapi/internal/server/models"
)

// Claim types used in access tokens.
const (
	ClaimSubject  = "sub"
	ClaimTokenID  = "jti"
	ClaimEmail    = "email"
	ClaimUsername = "username"
	ClaimRole     = "roles"
)

// Role claim values.
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// ErrNoClaims is returned when IssueAccessToken is called without claims.
// An empty claim set is a programmer error, not a user-facing failure.
var ErrNoClaims = errors.New("claim set must not be empty")

// Claim is a single typed fact embedded in an access token. Role claims may
// repeat; all other types appear at most once.
type Claim struct {
	Type  string
	Value string
}

// TokenResult is the outcome of a successful issuance.
type TokenResult struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccessClaims is the decoded, verified content of an access token.
type AccessClaims struct {
	UserID   string
	TokenID  string
	Email    string
	Username string
	Roles    []string
}

// HasRole reports whether the token carries the given role claim.
func (c *AccessClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Issuer signs access tokens with an RSA private key loaded once at startup.
type Issuer struct {
	keys     *KeyPair
	issuer   string
	audience string
	lifetime time.Duration
}

// NewIssuer constructs an Issuer. The key pair and lifetime come from the
// immutable server configuration; nothing is read from ambient state at
// issuance time.
func NewIssuer(keys *KeyPair, issuer, audience string, lifetime time.Duration) *Issuer {
	return &Issuer{keys: keys, issuer: issuer, audience: audience, lifetime: lifetime}
}

// UserClaims builds the standard claim set for a profile: subject, a fresh
// jti, email, username, and one role claim per granted role. Role claims are
// additive; a standard user who is also an admin carries both.
func UserClaims(p *models.UserProfile) []Claim {
	claims := []Claim{
		{Type: ClaimSubject, Value: p.ID},
		{Type: ClaimTokenID, Value: uuid.NewString()},
		{Type: ClaimEmail, Value: p.Email},
		{Type: ClaimUsername, Value: p.Username},
	}
	if p.IsUserRole {
		claims = append(claims, Claim{Type: ClaimRole, Value: RoleUser})
	}
	if p.IsAdminRole {
		claims = append(claims, Claim{Type: ClaimRole, Value: RoleAdmin})
	}
	return claims
}

// IssueAccessToken signs the given claims into a time-bound RS256 token.
// The claim set must be non-empty; expiry is issuedAt plus the configured
// lifetime.
func (i *Issuer) IssueAccessToken(claims []Claim) (*TokenResult, error) {
	if len(claims) == 0 {
		return nil, ErrNoClaims
	}

	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(i.lifetime)

	mc := jwt.MapClaims{
		"iss": i.issuer,
		"aud": i.audience,
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
	}
	var roles []string
	for _, c := range claims {
		if c.Type == ClaimRole {
			roles = append(roles, c.Value)
			continue
		}
		mc[c.Type] = c.Value
	}
	if len(roles) > 0 {
		mc[ClaimRole] = roles
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, mc)
	signed, err := token.SignedString(i.keys.Private)
	if err != nil {
		return nil, fmt.Errorf("error signing access token: %w", err)
	}

	return &TokenResult{Token: signed, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Parse verifies the signature, issuer, audience, and expiry of an access
// token and returns its decoded claims.
func (i *Issuer) Parse(tokenString string) (*AccessClaims, error) {
	mc := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
	)
	token, err := parser.ParseWithClaims(tokenString, mc, func(t *jwt.Token) (interface{}, error) {
		return i.keys.Public, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	out := &AccessClaims{}
	out.UserID, _ = mc[ClaimSubject].(string)
	out.TokenID, _ = mc[ClaimTokenID].(string)
	out.Email, _ = mc[ClaimEmail].(string)
	out.Username, _ = mc[ClaimUsername].(string)
	if raw, ok := mc[ClaimRole].([]interface{}); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				out.Roles = append(out.Roles, s)
			}
		}
	}
	return out, nil
}
