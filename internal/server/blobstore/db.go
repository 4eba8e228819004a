package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkov-dev/filevault/internal/common"
	"github.com/avolkov-dev/filevault/internal/dbx"
)

// DBStore keeps blobs in the blobs table. Good enough for single-node
// deployments and keeps ciphertext under the same transactional boundary
// as the metadata.
type DBStore struct {
	db dbx.DBTX
}

func NewDBStore(db dbx.DBTX) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Put(ctx context.Context, key string, data []byte) error {
	query :=
		`INSERT INTO blobs (storage_key, data)
         VALUES ($1, $2)
		 ON CONFLICT (storage_key) DO UPDATE SET data = EXCLUDED.data
		 `

	_, err := s.db.ExecContext(ctx, query, key, data)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (s *DBStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT data FROM blobs WHERE storage_key = $1`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return data, nil
}

func (s *DBStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM blobs WHERE storage_key = $1`

	_, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
