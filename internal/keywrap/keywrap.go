// Package keywrap wraps a per-file symmetric key for one recipient so that
// only the holder of the matching private key can recover it. The server
// stores one wrapped blob per (file, recipient) pair and never sees the
// plaintext file key.
//
// Scheme (KEM+DEM): an ephemeral P-256 key agrees with the recipient's static
// ECDH public key; the shared secret runs through HKDF-SHA256 to produce an
// AES-256-GCM key that seals the 32-byte file key.
//
// Wire format of a wrapped blob, base64-encoded for storage:
//
//	ephemeral public key (65, uncompressed) || nonce (12) || ciphertext+tag
package keywrap

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/avolkov-dev/filevault/internal/cryptox"
	"github.com/avolkov-dev/filevault/internal/keypair"
)

const (
	ephemeralKeySize = 65 // uncompressed P-256 point
	nonceSize        = cryptox.IVSize
	minBlobSize      = ephemeralKeySize + nonceSize + cryptox.KeySize + 16
)

// hkdfInfo domain-separates the derived wrapping key from any other use of
// the same agreement.
var hkdfInfo = []byte("filevault-key-wrap-v1")

// ErrUnwrap covers every unwrap failure: wrong private key, truncated or
// tampered blob. Callers get no finer detail.
var ErrUnwrap = errors.New("keywrap: unable to unwrap file key")

// Wrap seals the 256-bit fileKey under the recipient's encoded public key.
// It is repeatable: wrapping the same key for several recipients yields
// independent blobs over the same plaintext key.
func Wrap(fileKey []byte, recipientPublicKey string) (string, error) {
	if len(fileKey) != cryptox.KeySize {
		return "", fmt.Errorf("keywrap: file key must be %d bytes", cryptox.KeySize)
	}

	static, err := keypair.DecodeECDHPublic(recipientPublicKey)
	if err != nil {
		return "", fmt.Errorf("decoding recipient key: %w", err)
	}

	ephemeral, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generating ephemeral key: %w", err)
	}

	shared, err := ephemeral.ECDH(static)
	if err != nil {
		return "", fmt.Errorf("key agreement: %w", err)
	}

	kek, err := deriveKEK(shared)
	if err != nil {
		return "", err
	}

	nonce, err := cryptox.NewIV()
	if err != nil {
		return "", err
	}

	sealed, err := cryptox.Encrypt(kek, nonce, fileKey)
	if err != nil {
		return "", err
	}

	blob := make([]byte, 0, ephemeralKeySize+nonceSize+len(sealed))
	blob = append(blob, ephemeral.PublicKey().Bytes()...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Unwrap recovers the file key from a wrapped blob using the recipient's
// encoded private key.
func Unwrap(wrapped string, recipientPrivateKey string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil || len(blob) < minBlobSize {
		return nil, ErrUnwrap
	}

	static, err := keypair.DecodeECDHPrivate(recipientPrivateKey)
	if err != nil {
		return nil, ErrUnwrap
	}

	ephemeral, err := ecdh.P256().NewPublicKey(blob[:ephemeralKeySize])
	if err != nil {
		return nil, ErrUnwrap
	}

	shared, err := static.ECDH(ephemeral)
	if err != nil {
		return nil, ErrUnwrap
	}

	kek, err := deriveKEK(shared)
	if err != nil {
		return nil, ErrUnwrap
	}

	nonce := blob[ephemeralKeySize : ephemeralKeySize+nonceSize]
	sealed := blob[ephemeralKeySize+nonceSize:]

	fileKey, err := cryptox.Decrypt(kek, nonce, sealed)
	if err != nil {
		return nil, ErrUnwrap
	}
	return fileKey, nil
}

func deriveKEK(shared []byte) ([]byte, error) {
	kek := make([]byte, cryptox.KeySize)
	r := hkdf.New(sha256.New, shared, nil, hkdfInfo)
	if _, err := io.ReadFull(r, kek); err != nil {
		return nil, fmt.Errorf("deriving wrapping key: %w", err)
	}
	return kek, nil
}
