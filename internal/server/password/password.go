// Package password wraps the one-way password hash used for the password
// auth provider. It is pure and stateless; storage of the resulting hash is
// the caller's concern.
package password

import "golang.org/x/crypto/bcrypt"

// Hash derives a one-way bcrypt hash from the plaintext password.
func Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches the stored hash. A malformed
// stored hash is treated as a non-match, not an error: the caller only ever
// needs the yes/no answer.
func Verify(plaintext, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}
