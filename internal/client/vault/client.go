// Package vault implements the client side of the encrypted file vault.
//
// Client is a thin HTTP/JSON transport. Session layers the cryptography on
// top: key generation, file key wrapping, OTP derivation and action
// signing all happen locally, so plaintext and private keys never reach
// the server.
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avolkov-dev/filevault/internal/common"
)

const (
	headerEncryptionIV = "X-Encryption-IV"
	headerFileKey      = "X-File-Key"
	headerOriginalName = "X-Original-Name"
)

const defaultRequestTimeout = 30 * time.Second

// Client talks to the vault server. It is safe for sequential use only;
// the CLI drives one request at a time.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken installs the bearer token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError maps non-2xx responses onto the client error set, keeping
// the server-provided message when one is present.
func statusError(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}

	msg := ""
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		msg = er.Error
	}

	var base error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		base = ErrUnauthorized
	case http.StatusForbidden:
		base = ErrForbidden
	case http.StatusNotFound:
		base = ErrNotFound
	case http.StatusConflict:
		base = ErrConflict
	case http.StatusBadRequest:
		base = ErrBadRequest
	default:
		base = ErrServer
	}

	if msg == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, msg)
}

func (c *Client) Register(ctx context.Context, req registerRequest) (string, error) {
	var resp registerResponse
	if err := c.do(ctx, http.MethodPost, "/api/register", req, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

func (c *Client) Login(ctx context.Context, usernameOrEmail, password string) (string, int64, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", loginRequest{UsernameOrEmail: usernameOrEmail, Password: password}, &resp)
	if err != nil {
		return "", 0, err
	}
	return resp.UserID, resp.Counter, nil
}

func (c *Client) VerifyCode(ctx context.Context, userID, code string) (tokenResponse, error) {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/api/verify-code", verifyCodeRequest{UserID: userID, Code: code}, &resp)
	return resp, err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (tokenResponse, error) {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/api/token/refresh", refreshRequest{RefreshToken: refreshToken}, &resp)
	return resp, err
}

func (c *Client) Logout(ctx context.Context, actionSignature string) error {
	return c.do(ctx, http.MethodPost, "/api/logout", actionRequest{ActionSignature: actionSignature}, nil)
}

func (c *Client) Counter(ctx context.Context) (int64, error) {
	var resp counterResponse
	if err := c.do(ctx, http.MethodGet, "/api/counter", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Counter, nil
}

func (c *Client) Upload(ctx context.Context, req uploadRequest) (*File, error) {
	var f File
	if err := c.do(ctx, http.MethodPost, "/api/files", req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) Edit(ctx context.Context, fileID string, req editRequest) (*File, error) {
	var f File
	if err := c.do(ctx, http.MethodPut, "/api/files/"+fileID, req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) Delete(ctx context.Context, fileID, actionSignature string) error {
	return c.do(ctx, http.MethodDelete, "/api/files/"+fileID, actionRequest{ActionSignature: actionSignature}, nil)
}

// Download fetches ciphertext. Unlike the JSON endpoints, the body is the
// raw ciphertext and decryption material rides in response headers.
func (c *Client) Download(ctx context.Context, fileID string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/files/"+fileID, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Download{
		Ciphertext:   data,
		IV:           resp.Header.Get(headerEncryptionIV),
		WrappedKey:   resp.Header.Get(headerFileKey),
		OriginalName: resp.Header.Get(headerOriginalName),
		ContentType:  resp.Header.Get("Content-Type"),
	}, nil
}

func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	var out []File
	if err := c.do(ctx, http.MethodGet, "/api/files", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListSharedFiles(ctx context.Context) ([]File, error) {
	var out []File
	if err := c.do(ctx, http.MethodGet, "/api/files/shared", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) WrappedKey(ctx context.Context, fileID string) (string, error) {
	var resp wrappedKeyResponse
	if err := c.do(ctx, http.MethodGet, "/api/files/"+fileID+"/key", nil, &resp); err != nil {
		return "", err
	}
	return resp.WrappedKey, nil
}

func (c *Client) Share(ctx context.Context, fileID, recipientID, wrappedKey string) (string, error) {
	var resp shareResponse
	err := c.do(ctx, http.MethodPost, "/api/files/"+fileID+"/share", shareRequest{RecipientID: recipientID, WrappedKey: wrappedKey}, &resp)
	if err != nil {
		return "", err
	}
	return resp.GrantID, nil
}

func (c *Client) Unshare(ctx context.Context, fileID, recipientID, actionSignature string) error {
	return c.do(ctx, http.MethodPost, "/api/files/"+fileID+"/unshare", unshareRequest{RecipientID: recipientID, ActionSignature: actionSignature}, nil)
}

func (c *Client) ListRecipients(ctx context.Context, fileID string) ([]Recipient, error) {
	var out []Recipient
	if err := c.do(ctx, http.MethodGet, "/api/files/"+fileID+"/recipients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListShareable(ctx context.Context, fileID string) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, "/api/files/"+fileID+"/shareable", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PublicKey(ctx context.Context, userID string) (string, error) {
	var resp publicKeyResponse
	if err := c.do(ctx, http.MethodGet, "/api/users/"+userID+"/public-key", nil, &resp); err != nil {
		return "", err
	}
	return resp.PublicKey, nil
}
