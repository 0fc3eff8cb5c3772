package models

import "time"

// RefreshToken is a single-use opaque credential paired with the access
// token it was issued alongside.
//
// Token is the primary key (a high-entropy random string). AccessToken is a
// secondary lookup key: several records can share it across rotations.
// Owner is the lowercase username of the owning user. Records are never
// physically deleted on consumption; Used/Revoked are terminal one-way flags
// kept for audit and reuse detection.
type RefreshToken struct {
	Token       string
	AccessToken string
	Owner       string

	ExpiresAt time.Time

	Used          bool
	Revoked       bool
	RevokedReason string
	RevokedAt     time.Time

	SuccessorToken string

	CreatedAt time.Time
}

// IsActive reports whether the record can still be exchanged: not yet used,
// not revoked, and not past its expiry at the given instant.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Used && !t.Revoked && t.ExpiresAt.After(now)
}

// IsExpired reports whether the record's expiry has strictly passed. The
// boundary instant itself is still considered valid.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
