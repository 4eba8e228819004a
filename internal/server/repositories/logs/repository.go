// Package logs declares the repository contract for the append-only audit
// trail.
package logs

import (
	"context"

	"github.com/avolkov-dev/filevault/internal/server/models"
)

// Repository defines operations on audit records. There is no update or
// delete: the trail only grows.
type Repository interface {
	// Append inserts one audit record.
	Append(ctx context.Context, entry *models.LogEntry) error

	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]*models.LogEntry, error)
}
