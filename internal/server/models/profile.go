// Package models defines the persistent records shared by the server-side
// repositories and services: user profiles, per-provider credentials, and
// refresh tokens.
package models

import (
	"strings"
	"time"
)

// UserProfile is the identity record for a single user.
//
// Username and Email are stored lowercase and are each globally unique;
// UsernameOriginal preserves the case the user typed at registration for
// display purposes. The verification fields are owned by the verification
// token service: a single active token per user, cleared on success.
type UserProfile struct {
	ID               string
	Username         string
	UsernameOriginal string
	Email            string

	IsUserRole  bool
	IsAdminRole bool

	EmailVerified           bool
	EmailVerifiedAt         time.Time
	VerificationToken       string
	VerificationTokenExpiry time.Time

	CreatedAt time.Time
}

// NormalizeKey lowercases a username or email for storage and lookups so
// comparisons are case-insensitive on every path.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
