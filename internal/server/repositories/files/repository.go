// Package files declares the repository contract for encrypted file
// metadata. Ciphertext bodies are kept in the blob store, not here.
package files

import (
	"context"

	"github.com/avolkov-dev/filevault/internal/server/models"
)

// Repository defines persistence operations for file metadata rows.
type Repository interface {
	// Create inserts a new metadata row.
	Create(ctx context.Context, file *models.File) (*models.File, error)

	// GetByID looks a file up by its primary key.
	GetByID(ctx context.Context, id string) (*models.File, error)

	// ListByOwner returns the caller's own files, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.File, error)

	// ListSharedWith returns files another owner granted to userID,
	// newest first.
	ListSharedWith(ctx context.Context, userID string) ([]*models.File, error)

	// Update replaces the re-encryptable fields of a row: ciphertext
	// location, IV, wrapped owner key, name, type and size.
	Update(ctx context.Context, file *models.File) error

	// Delete removes the metadata row. Grants referencing it go with it.
	Delete(ctx context.Context, id string) error
}
