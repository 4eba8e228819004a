// Package common defines shared constants and sentinel errors used across
// client and server layers of the vault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Authentication failures. Deliberately a single value: bad password,
	// unknown user, bad one-time code and bad bearer token are
	// indistinguishable to the caller.
	ErrUnauthorized = errors.New("unauthorized")

	// Authorization failures (authenticated, but not owner / not a grant holder).
	ErrForbidden = errors.New("forbidden")

	// Uniqueness violations (username or email already taken).
	ErrConflict = errors.New("already exists")

	// Duplicate share grant. Surfaced distinctly so clients can render
	// "already shared" instead of a generic failure.
	ErrAlreadyShared = errors.New("file already shared with this user")

	// Unshare of a (file, recipient) pair with no grant.
	ErrNotShared = errors.New("file is not shared with this user")

	// Malformed request fields; message is safe to expose.
	ErrValidation = errors.New("validation error")

	// Generic cryptographic failure (unwrap, signature, auth tag). The
	// specific cause is logged server-side only.
	ErrCrypto = errors.New("cryptographic verification failed")

	ErrInternal = errors.New("internal error")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
