package models

import "time"

// File is the metadata row of one encrypted file. The ciphertext itself
// lives in the blob store under StorageKey; WrappedOwnerKey is the file's
// symmetric key wrapped under the owner's public key. The plaintext key is
// chosen once at upload and shared by every outstanding wrapped copy.
type File struct {
	ID              string
	OwnerID         string
	IV              string
	WrappedOwnerKey string
	OriginalName    string
	OriginalType    string
	Size            int64
	StorageKey      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
