// Package cryptox implements the symmetric file cipher: AES-256-GCM over
// caller-supplied keys and IVs. All randomness comes from crypto/rand; the
// transforms themselves are pure.
//
// One IV length (12 bytes) is used at every call site that shares a key.
// Mismatched lengths are rejected instead of being truncated or padded.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the GCM nonce length in bytes, fixed for every encryption
	// call site sharing a key/algorithm pair.
	IVSize = 12
)

var (
	ErrInvalidKeySize = errors.New("cryptox: key must be 32 bytes")
	ErrInvalidIVSize  = errors.New("cryptox: iv must be 12 bytes")
	// ErrAuthentication covers any GCM open failure: flipped ciphertext,
	// flipped tag, wrong key or wrong IV are indistinguishable.
	ErrAuthentication = errors.New("cryptox: message authentication failed")
)

// NewFileKey returns a fresh random 256-bit key.
func NewFileKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating file key: %w", err)
	}
	return key, nil
}

// NewIV returns a fresh random 12-byte GCM nonce.
func NewIV() ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generating iv: %w", err)
	}
	return iv, nil
}

// Encrypt seals plaintext with AES-256-GCM. The returned ciphertext carries
// the 16-byte authentication tag appended by GCM.
func Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	aesgcm, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	return aesgcm.Seal(nil, iv, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt. Integrity is verified before
// any plaintext is released; a single flipped byte anywhere fails with
// ErrAuthentication.
func Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	aesgcm, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	plaintext, err := aesgcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func newGCM(key, iv []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(iv) != IVSize {
		return nil, ErrInvalidIVSize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
