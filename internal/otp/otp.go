// Package otp derives the six-digit one-time code used as the second login
// factor. The code is a pure function of the per-user monotonic counter: the
// counter is serialized big-endian into eight bytes, hashed with SHA-256, and
// reduced with the standard HOTP dynamic truncation (last nibble selects a
// four-byte window, top bit cleared, mod 1e6, left-zero-padded).
//
// No shared secret participates, so client and server derivations must be
// bit-for-bit identical, and the scheme is only as strong as the secrecy of
// the counter value itself: the verifier must never reveal a counter to
// anyone but the authenticated session holder.
package otp

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

// Digits is the fixed code length.
const Digits = 6

// DeriveCode computes the six-digit code for a counter value. Deterministic:
// equal counters always produce equal codes.
func DeriveCode(counter uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)

	hash := sha256.Sum256(buf[:])

	offset := hash[len(hash)-1] & 0x0f
	binaryCode := uint32(hash[offset]&0x7f)<<24 |
		uint32(hash[offset+1])<<16 |
		uint32(hash[offset+2])<<8 |
		uint32(hash[offset+3])

	return fmt.Sprintf("%0*d", Digits, binaryCode%1_000_000)
}

// VerifyCode re-derives the code for counter and compares it with the
// submitted value in constant time.
func VerifyCode(counter uint64, submitted string) bool {
	if len(submitted) != Digits {
		return false
	}
	expected := DeriveCode(counter)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}
