package auth

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// KeyPair holds the RSA keys used for access-token signing and verification.
// The private half signs; the public half is all a relying party needs.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// LoadKeyPair parses a PEM-encoded RSA key pair. A missing or malformed key
// is a startup-time failure: callers are expected to abort, not retry.
func LoadKeyPair(privatePEM, publicPEM string) (*KeyPair, error) {
	if privatePEM == "" {
		return nil, fmt.Errorf("rsa private key is missing")
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privatePEM))
	if err != nil {
		return nil, fmt.Errorf("invalid rsa private key: %w", err)
	}

	pub := &priv.PublicKey
	if publicPEM != "" {
		parsed, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicPEM))
		if err != nil {
			return nil, fmt.Errorf("invalid rsa public key: %w", err)
		}
		pub = parsed
	}

	return &KeyPair{Private: priv, Public: pub}, nil
}
