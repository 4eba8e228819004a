package vault

import "time"

// Wire types for the vault HTTP API. Field names follow the server's JSON
// contract; binary values travel base64-encoded.

type registerRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	PublicKey        string `json:"publicKey"`
	SigningPublicKey string `json:"signingPublicKey"`
}

type registerResponse struct {
	UserID string `json:"userId"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type loginResponse struct {
	UserID  string `json:"userId"`
	Counter int64  `json:"counter"`
}

type verifyCodeRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type actionRequest struct {
	ActionSignature string `json:"actionSignature"`
}

type counterResponse struct {
	Counter int64 `json:"counter"`
}

type uploadRequest struct {
	Ciphertext      []byte `json:"ciphertext"`
	IV              string `json:"iv"`
	WrappedOwnerKey string `json:"wrappedOwnerKey"`
	OriginalName    string `json:"originalName"`
	OriginalType    string `json:"originalType"`
	Size            int64  `json:"size"`
}

type editRequest struct {
	Ciphertext      []byte `json:"ciphertext"`
	IV              string `json:"iv"`
	WrappedOwnerKey string `json:"wrappedOwnerKey"`
	OriginalName    string `json:"originalName"`
	OriginalType    string `json:"originalType"`
	Size            int64  `json:"size"`
	ActionSignature string `json:"actionSignature"`
}

type wrappedKeyResponse struct {
	WrappedKey string `json:"wrappedKey"`
}

type shareRequest struct {
	RecipientID string `json:"recipientId"`
	WrappedKey  string `json:"wrappedKey"`
}

type shareResponse struct {
	GrantID string `json:"grantId"`
}

type unshareRequest struct {
	RecipientID     string `json:"recipientId"`
	ActionSignature string `json:"actionSignature"`
}

type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// File describes stored file metadata as reported by the server.
type File struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	IV           string    `json:"iv"`
	OriginalName string    `json:"originalName"`
	OriginalType string    `json:"originalType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// User is a directory entry, used when picking share recipients.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Recipient is an account a file has been shared with.
type Recipient struct {
	UserID   string    `json:"userId"`
	SharedAt time.Time `json:"sharedAt"`
}

// Download carries a fetched ciphertext together with the decryption
// material the server returns in response headers.
type Download struct {
	Ciphertext   []byte
	IV           string
	WrappedKey   string
	OriginalName string
	ContentType  string
}
