// Package blobstore holds the ciphertext bodies of uploaded files. Metadata
// stays in the files table; this store only maps an opaque storage key to
// encrypted bytes. Two implementations are provided: Postgres-backed for
// single-node deployments and S3-compatible for object storage.
package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store persists encrypted file bodies under opaque keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewStorageKey returns a fresh storage key, partitioned by date so object
// listings stay browsable.
func NewStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("files/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
