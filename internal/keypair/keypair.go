// Package keypair generates and encodes the two P-256 key pairs every vault
// user holds: an ECDH pair used to wrap file keys and an ECDSA pair used to
// sign action assertions.
//
// Keys travel and rest as base64 of a canonical JSON key object (JWK-shaped:
// kty/crv/x/y and, for private keys, the scalar d; coordinates are unpadded
// base64url). A public key encoding is always recoverable from the matching
// private key encoding by dropping d — the login flow relies on that to prove
// possession of a key pair without transmitting the private key.
package keypair

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

const (
	keyType   = "EC"
	curveName = "P-256"
	coordSize = 32
)

var ErrInvalidKey = errors.New("keypair: invalid key encoding")

// JWK is the canonical JSON key object.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	D   string `json:"d,omitempty"`
	Ext bool   `json:"ext"`
}

// GenerateEncryptionKeyPair returns the encoded (public, private) ECDH pair.
func GenerateEncryptionKeyPair() (string, string, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generating ecdh key: %w", err)
	}

	raw := priv.PublicKey().Bytes() // 0x04 || X || Y
	jwk := JWK{
		Kty: keyType,
		Crv: curveName,
		X:   b64(raw[1 : 1+coordSize]),
		Y:   b64(raw[1+coordSize:]),
		Ext: true,
	}
	pub, err := encode(jwk)
	if err != nil {
		return "", "", err
	}

	jwk.D = b64(priv.Bytes())
	privEnc, err := encode(jwk)
	if err != nil {
		return "", "", err
	}
	return pub, privEnc, nil
}

// GenerateSigningKeyPair returns the encoded (public, private) ECDSA pair
// suitable for ES256 signatures.
func GenerateSigningKeyPair() (string, string, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generating ecdsa key: %w", err)
	}

	jwk := JWK{
		Kty: keyType,
		Crv: curveName,
		X:   b64(priv.X.FillBytes(make([]byte, coordSize))),
		Y:   b64(priv.Y.FillBytes(make([]byte, coordSize))),
		Ext: true,
	}
	pub, err := encode(jwk)
	if err != nil {
		return "", "", err
	}

	jwk.D = b64(priv.D.FillBytes(make([]byte, coordSize)))
	privEnc, err := encode(jwk)
	if err != nil {
		return "", "", err
	}
	return pub, privEnc, nil
}

// PublicFromPrivate recovers the public key encoding from a private key
// encoding by keeping the curve and point fields and dropping the scalar.
func PublicFromPrivate(privEncoded string) (string, error) {
	jwk, err := decode(privEncoded)
	if err != nil {
		return "", err
	}
	if jwk.D == "" {
		return "", fmt.Errorf("%w: missing private scalar", ErrInvalidKey)
	}
	jwk.D = ""
	jwk.Ext = true
	return encode(jwk)
}

// DecodeECDHPublic parses an encoded public key for key agreement.
func DecodeECDHPublic(encoded string) (*ecdh.PublicKey, error) {
	jwk, err := decode(encoded)
	if err != nil {
		return nil, err
	}
	x, y, err := jwk.point()
	if err != nil {
		return nil, err
	}
	raw := make([]byte, 1+2*coordSize)
	raw[0] = 0x04
	copy(raw[1:], x)
	copy(raw[1+coordSize:], y)
	pub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}

// DecodeECDHPrivate parses an encoded private key for key agreement.
func DecodeECDHPrivate(encoded string) (*ecdh.PrivateKey, error) {
	jwk, err := decode(encoded)
	if err != nil {
		return nil, err
	}
	d, err := jwk.scalar()
	if err != nil {
		return nil, err
	}
	priv, err := ecdh.P256().NewPrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return priv, nil
}

// DecodeECDSAPublic parses an encoded public key for signature verification.
func DecodeECDSAPublic(encoded string) (*ecdsa.PublicKey, error) {
	jwk, err := decode(encoded)
	if err != nil {
		return nil, err
	}
	x, y, err := jwk.point()
	if err != nil {
		return nil, err
	}
	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}
	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return nil, fmt.Errorf("%w: point not on curve", ErrInvalidKey)
	}
	return pub, nil
}

// DecodeECDSAPrivate parses an encoded private key for signing.
func DecodeECDSAPrivate(encoded string) (*ecdsa.PrivateKey, error) {
	pub, err := DecodeECDSAPublic(encoded)
	if err != nil {
		return nil, err
	}
	jwk, err := decode(encoded)
	if err != nil {
		return nil, err
	}
	d, err := jwk.scalar()
	if err != nil {
		return nil, err
	}
	return &ecdsa.PrivateKey{
		PublicKey: *pub,
		D:         new(big.Int).SetBytes(d),
	}, nil
}

func (j JWK) point() ([]byte, []byte, error) {
	x, err := b64decode(j.X)
	if err != nil || len(x) != coordSize {
		return nil, nil, fmt.Errorf("%w: bad x coordinate", ErrInvalidKey)
	}
	y, err := b64decode(j.Y)
	if err != nil || len(y) != coordSize {
		return nil, nil, fmt.Errorf("%w: bad y coordinate", ErrInvalidKey)
	}
	return x, y, nil
}

func (j JWK) scalar() ([]byte, error) {
	if j.D == "" {
		return nil, fmt.Errorf("%w: missing private scalar", ErrInvalidKey)
	}
	d, err := b64decode(j.D)
	if err != nil || len(d) != coordSize {
		return nil, fmt.Errorf("%w: bad private scalar", ErrInvalidKey)
	}
	return d, nil
}

func encode(jwk JWK) (string, error) {
	data, err := json.Marshal(jwk)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decode(encoded string) (JWK, error) {
	var jwk JWK
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return jwk, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if err := json.Unmarshal(data, &jwk); err != nil {
		return jwk, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if jwk.Kty != keyType || jwk.Crv != curveName {
		return jwk, fmt.Errorf("%w: unsupported key type %q/%q", ErrInvalidKey, jwk.Kty, jwk.Crv)
	}
	return jwk, nil
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func b64decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
