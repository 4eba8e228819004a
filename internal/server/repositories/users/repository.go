// Package users declares the server-side repository contract for vault
// accounts.
package users

import (
	"context"

	"github.com/avolkov-dev/filevault/internal/server/models"
)

// Repository defines persistence operations for user accounts.
type Repository interface {
	// Create inserts a new account and returns it with the generated ID set.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername looks an account up by its unique username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmail looks an account up by its unique email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID looks an account up by its primary key.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// AdvanceCounter atomically increments the account's one-time-code
	// counter and returns the new value.
	AdvanceCounter(ctx context.Context, userID string) (int64, error)

	// List returns every account, ordered by username. Used to populate
	// share pickers.
	List(ctx context.Context) ([]*models.User, error)

	// IsAdmin reports whether the account has a row in the admins table.
	IsAdmin(ctx context.Context, userID string) (bool, error)
}
