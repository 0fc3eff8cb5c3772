package common

import (
	"crypto/rand"
	"encoding/base64"
)

// AuthorizationHeaderName is the HTTP header used to carry the access token
// on authenticated requests.
const AuthorizationHeaderName = "Authorization"

// GenerateRandByteArray returns size cryptographically random bytes.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		// crypto/rand never fails on supported platforms; a failure here
		// means the process cannot safely continue issuing credentials.
		panic(err)
	}
	return b
}

// MakeRandTokenString generates a URL-safe token from size random bytes.
// The result is base64 without padding, so it contains no '+', '/' or '='
// characters and can be embedded in links as-is. The string is roughly 4/3
// times longer than size. Like GenerateRandByteArray, it panics if the
// system entropy source fails.
func MakeRandTokenString(size int) string {
	return base64.RawURLEncoding.EncodeToString(GenerateRandByteArray(size))
}
