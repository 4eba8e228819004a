package vault

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/avolkov-dev/filevault/internal/actionsign"
	"github.com/avolkov-dev/filevault/internal/cryptox"
	"github.com/avolkov-dev/filevault/internal/keypair"
	"github.com/avolkov-dev/filevault/internal/keywrap"
	"github.com/avolkov-dev/filevault/internal/otp"
)

// Action names carried inside signed action tokens. Must match the server.
const (
	actionEditFile    = "edit-file"
	actionDeleteFile  = "delete-file"
	actionUnshareFile = "unshare-file"
	actionLogout      = "logout"
)

// Identity is the local half of an account: the user id plus the two
// private keys that never leave this machine.
type Identity struct {
	UserID            string `json:"userId"`
	Username          string `json:"username"`
	PrivateKey        string `json:"privateKey"`
	SigningPrivateKey string `json:"signingPrivateKey"`
}

// Register creates an account. Key pairs are generated locally and only
// the public halves are sent; the returned Identity must be persisted by
// the caller or the account's files become unreadable.
func Register(ctx context.Context, c *Client, username, email, password string) (*Identity, error) {
	encPub, encPriv, err := keypair.GenerateEncryptionKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate encryption key: %w", err)
	}
	sigPub, sigPriv, err := keypair.GenerateSigningKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}

	userID, err := c.Register(ctx, registerRequest{
		Username:         username,
		Email:            email,
		Password:         password,
		PublicKey:        encPub,
		SigningPublicKey: sigPub,
	})
	if err != nil {
		return nil, err
	}

	return &Identity{
		UserID:            userID,
		Username:          username,
		PrivateKey:        encPriv,
		SigningPrivateKey: sigPriv,
	}, nil
}

// Session is an authenticated connection. It exists between a successful
// two-step login and Logout; all file operations hang off it.
type Session struct {
	client   *Client
	identity *Identity
	refresh  string
}

// Login performs the two-step authentication: password check first, then
// the one-time code derived locally from the server-issued counter.
func Login(ctx context.Context, c *Client, id *Identity, password string) (*Session, error) {
	userID, counter, err := c.Login(ctx, id.Username, password)
	if err != nil {
		return nil, err
	}

	pair, err := c.VerifyCode(ctx, userID, otp.DeriveCode(uint64(counter)))
	if err != nil {
		return nil, err
	}

	c.SetToken(pair.AccessToken)
	id.UserID = userID
	return &Session{client: c, identity: id, refresh: pair.RefreshToken}, nil
}

// UserID returns the authenticated account id.
func (s *Session) UserID() string {
	return s.identity.UserID
}

func (s *Session) signAction(action string) (string, error) {
	return actionsign.Sign(action, s.identity.SigningPrivateKey, 0)
}

// EncryptAndUpload encrypts plaintext under a fresh file key, wraps the
// key for the owner and uploads ciphertext plus metadata.
func (s *Session) EncryptAndUpload(ctx context.Context, name, contentType string, plaintext []byte) (*File, error) {
	fileKey, err := cryptox.NewFileKey()
	if err != nil {
		return nil, err
	}
	iv, err := cryptox.NewIV()
	if err != nil {
		return nil, err
	}
	ciphertext, err := cryptox.Encrypt(fileKey, iv, plaintext)
	if err != nil {
		return nil, err
	}

	ownPub, err := keypair.PublicFromPrivate(s.identity.PrivateKey)
	if err != nil {
		return nil, err
	}
	wrapped, err := keywrap.Wrap(fileKey, ownPub)
	if err != nil {
		return nil, err
	}

	return s.client.Upload(ctx, uploadRequest{
		Ciphertext:      ciphertext,
		IV:              base64.StdEncoding.EncodeToString(iv),
		WrappedOwnerKey: wrapped,
		OriginalName:    name,
		OriginalType:    contentType,
		Size:            int64(len(plaintext)),
	})
}

// Plaintext is a decrypted download.
type Plaintext struct {
	Name        string
	ContentType string
	Data        []byte
}

// DownloadAndDecrypt fetches a file, unwraps the caller's copy of the
// file key and decrypts the ciphertext locally.
func (s *Session) DownloadAndDecrypt(ctx context.Context, fileID string) (*Plaintext, error) {
	dl, err := s.client.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}

	fileKey, err := keywrap.Unwrap(dl.WrappedKey, s.identity.PrivateKey)
	if err != nil {
		return nil, err
	}
	iv, err := base64.StdEncoding.DecodeString(dl.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	data, err := cryptox.Decrypt(fileKey, iv, dl.Ciphertext)
	if err != nil {
		return nil, err
	}

	return &Plaintext{Name: dl.OriginalName, ContentType: dl.ContentType, Data: data}, nil
}

// Edit re-encrypts new content under the file's existing key with a fresh
// IV. The wrapped key is unchanged, so prior grants keep working.
func (s *Session) Edit(ctx context.Context, fileID, name, contentType string, plaintext []byte) (*File, error) {
	wrapped, err := s.client.WrappedKey(ctx, fileID)
	if err != nil {
		return nil, err
	}
	fileKey, err := keywrap.Unwrap(wrapped, s.identity.PrivateKey)
	if err != nil {
		return nil, err
	}

	iv, err := cryptox.NewIV()
	if err != nil {
		return nil, err
	}
	ciphertext, err := cryptox.Encrypt(fileKey, iv, plaintext)
	if err != nil {
		return nil, err
	}

	token, err := s.signAction(actionEditFile)
	if err != nil {
		return nil, err
	}

	return s.client.Edit(ctx, fileID, editRequest{
		Ciphertext:      ciphertext,
		IV:              base64.StdEncoding.EncodeToString(iv),
		WrappedOwnerKey: wrapped,
		OriginalName:    name,
		OriginalType:    contentType,
		Size:            int64(len(plaintext)),
		ActionSignature: token,
	})
}

// Delete removes a file after proving intent with a signed action token.
func (s *Session) Delete(ctx context.Context, fileID string) error {
	token, err := s.signAction(actionDeleteFile)
	if err != nil {
		return err
	}
	return s.client.Delete(ctx, fileID, token)
}

// Share unwraps the caller's copy of the file key and rewraps it for the
// recipient's public key. The file key itself is never transmitted.
func (s *Session) Share(ctx context.Context, fileID, recipientID string) error {
	wrapped, err := s.client.WrappedKey(ctx, fileID)
	if err != nil {
		return err
	}
	fileKey, err := keywrap.Unwrap(wrapped, s.identity.PrivateKey)
	if err != nil {
		return err
	}

	recipientPub, err := s.client.PublicKey(ctx, recipientID)
	if err != nil {
		return err
	}
	rewrapped, err := keywrap.Wrap(fileKey, recipientPub)
	if err != nil {
		return err
	}

	_, err = s.client.Share(ctx, fileID, recipientID, rewrapped)
	return err
}

// Unshare revokes a recipient's grant.
func (s *Session) Unshare(ctx context.Context, fileID, recipientID string) error {
	token, err := s.signAction(actionUnshareFile)
	if err != nil {
		return err
	}
	return s.client.Unshare(ctx, fileID, recipientID, token)
}

func (s *Session) ListFiles(ctx context.Context) ([]File, error) {
	return s.client.ListFiles(ctx)
}

func (s *Session) ListSharedFiles(ctx context.Context) ([]File, error) {
	return s.client.ListSharedFiles(ctx)
}

func (s *Session) ListRecipients(ctx context.Context, fileID string) ([]Recipient, error) {
	return s.client.ListRecipients(ctx, fileID)
}

func (s *Session) ListShareable(ctx context.Context, fileID string) ([]User, error) {
	return s.client.ListShareable(ctx, fileID)
}

func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	return s.client.ListUsers(ctx)
}

// Refresh rotates the token pair using the stored refresh token.
func (s *Session) Refresh(ctx context.Context) error {
	pair, err := s.client.Refresh(ctx, s.refresh)
	if err != nil {
		return err
	}
	s.client.SetToken(pair.AccessToken)
	s.refresh = pair.RefreshToken
	return nil
}

// Logout records a signed logout action, revokes the server-side refresh
// tokens and tears the session down. The session is unusable afterwards.
func (s *Session) Logout(ctx context.Context) error {
	token, err := s.signAction(actionLogout)
	if err != nil {
		return err
	}
	if err := s.client.Logout(ctx, token); err != nil {
		return err
	}
	s.client.SetToken("")
	s.refresh = ""
	return nil
}
