package httpapi

import "time"

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

type logoutRequest struct {
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

type fileResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	IV           string    `json:"iv"`
	OriginalName string    `json:"originalName"`
	OriginalType string    `json:"originalType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
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

type recipientResponse struct {
	UserID   string    `json:"userId"`
	SharedAt time.Time `json:"sharedAt"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type logEntryResponse struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	UserID    string    `json:"userId"`
	Signature string    `json:"signature,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
	Level     string    `json:"level"`
}

type errorResponse struct {
	Error string `json:"error"`
}
