package models

import "time"

// AuthProvider tags the origin of a credential. Only the password provider
// is implemented; the enum leaves room for federated providers.
type AuthProvider string

const (
	ProviderPassword AuthProvider = "password"
	ProviderGoogle   AuthProvider = "google"
	ProviderGitHub   AuthProvider = "github"
)

// CredentialType describes what the opaque Value field holds.
type CredentialType string

const (
	CredentialTypePassword CredentialType = "password"
)

// Credential is one row per (user id, provider). For the password provider
// Value is the one-way bcrypt hash. At most one credential may exist per
// (user, provider) pair; creating a duplicate is rejected, not overwritten.
type Credential struct {
	UserID    string
	Provider  AuthProvider
	Type      CredentialType
	Value     string
	CreatedAt time.Time
}
