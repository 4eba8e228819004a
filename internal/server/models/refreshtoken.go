package models

import "time"

// RefreshToken is a server-stored long-lived credential exchanged for fresh
// bearer tokens. Rotated on every use.
type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}
