package models

import "time"

// LogEntry is one append-only audit record. Signature, when present, is the
// verified action token accompanying a destructive request.
type LogEntry struct {
	ID        int64
	Timestamp time.Time
	Message   string
	UserID    string
	Signature string
	Metadata  string
	Level     string
}
