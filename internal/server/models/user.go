// Package models defines the persisted entities of the vault server.
package models

import "time"

// User is a vault account. PublicKey and SigningPublicKey are base64 JSON
// key objects supplied by the client at registration; the matching private
// keys never reach the server. Counter backs the one-time-code second factor
// and only ever moves forward.
type User struct {
	ID               string
	Username         string
	Email            string
	PasswordHash     string
	PublicKey        string
	SigningPublicKey string
	Counter          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
