package models

import "time"

// AccessGrant authorizes one recipient to decrypt one file: WrappedKey is
// the file's symmetric key wrapped under the recipient's public key. At most
// one grant exists per (FileID, SharedWith) pair; deleting the grant is the
// only way to revoke the recipient's access.
type AccessGrant struct {
	ID         string
	FileID     string
	SharedWith string
	OwnerID    string
	WrappedKey string
	CreatedAt  time.Time
}
