// Package grants declares the repository contract for file access grants.
// A grant is one recipient's wrapped copy of one file key.
package grants

import (
	"context"

	"github.com/avolkov-dev/filevault/internal/server/models"
)

// Repository defines persistence operations for access grants.
type Repository interface {
	// Create inserts a grant. A second grant for the same (file,
	// recipient) pair returns common.ErrAlreadyShared.
	Create(ctx context.Context, grant *models.AccessGrant) (*models.AccessGrant, error)

	// Get returns the grant for (fileID, sharedWith), or common.ErrNotFound.
	Get(ctx context.Context, fileID, sharedWith string) (*models.AccessGrant, error)

	// ListByFile returns every grant on a file.
	ListByFile(ctx context.Context, fileID string) ([]*models.AccessGrant, error)

	// Delete removes the grant for (fileID, sharedWith). Missing grants
	// return common.ErrNotShared.
	Delete(ctx context.Context, fileID, sharedWith string) error

	// DeleteByFile removes every grant on a file.
	DeleteByFile(ctx context.Context, fileID string) error
}
