// Package actionsign produces and verifies short-lived signed assertions
// binding an action name to a user's signing key. A verified token is stored
// alongside the audit entry as non-repudiable proof that the key holder
// requested the destructive operation (delete, edit, unshare, logout).
package actionsign

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avolkov-dev/filevault/internal/keypair"
)

// DefaultTTL bounds how long a signed action stays presentable.
const DefaultTTL = 24 * time.Hour

var (
	ErrInvalidSignature = errors.New("actionsign: invalid signature")
	ErrExpired          = errors.New("actionsign: assertion expired")
)

// Claims carries the standard time claims plus the asserted action name.
type Claims struct {
	jwt.RegisteredClaims
	Action string `json:"act"`
}

// Sign creates an ES256 token asserting the named action, valid for ttl
// (DefaultTTL when ttl is zero). The key is a base64 JSON key object as
// produced by keypair.GenerateSigningKeyPair.
func Sign(action string, signingPrivateKey string, ttl time.Duration) (string, error) {
	if action == "" {
		return "", fmt.Errorf("actionsign: empty action")
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}

	priv, err := keypair.DecodeECDSAPrivate(signingPrivateKey)
	if err != nil {
		return "", fmt.Errorf("decoding signing key: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Action: action,
	})

	signed, err := token.SignedString(priv)
	if err != nil {
		return "", fmt.Errorf("signing action: %w", err)
	}
	return signed, nil
}

// Verify checks the token against the signer's public key and returns the
// asserted action name. Expired assertions fail with ErrExpired; any other
// failure (wrong key, tampering, wrong algorithm) yields ErrInvalidSignature.
func Verify(token string, signingPublicKey string) (string, error) {
	pub, err := keypair.DecodeECDSAPublic(signingPublicKey)
	if err != nil {
		return "", ErrInvalidSignature
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalidSignature
	}
	if !parsed.Valid || claims.Action == "" {
		return "", ErrInvalidSignature
	}
	return claims.Action, nil
}
