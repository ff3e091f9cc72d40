package auth

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// InMemoryKeySet is a single-process HMAC KeySet: it signs with a randomly
// generated secret and validates against that same secret. Production
// deployments should back KeySet with a rotated secret store or JWKS
// fetcher instead.
type InMemoryKeySet struct {
	secret []byte
}

// NewInMemoryKeySet generates a random HMAC secret and returns a KeySet
// backed by it.
func NewInMemoryKeySet() (*InMemoryKeySet, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("keyset: failed to generate secret: %w", err)
	}
	return &InMemoryKeySet{secret: secret}, nil
}

// KeyFunc returns the jwt.Keyfunc JWTValidator uses to verify a token's
// signature, rejecting any algorithm other than HMAC.
func (k *InMemoryKeySet) KeyFunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("keyset: unexpected signing method %v", token.Header["alg"])
		}
		return k.secret, nil
	}
}

// Sign produces a signed JWT for the given claims.
func (k *InMemoryKeySet) Sign(ctx context.Context, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(k.secret)
}
