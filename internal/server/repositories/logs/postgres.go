package logs

import (
	"context"
	"fmt"

	"github.com/avolkov-dev/filevault/internal/dbx"
	"github.com/avolkov-dev/filevault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, entry *models.LogEntry) error {

	query :=
		`INSERT INTO logs (message, user_id, signature, metadata, level)
         VALUES ($1, $2, $3, $4, $5)
		 `

	_, err := r.db.ExecContext(ctx, query,
		entry.Message, entry.UserID, entry.Signature, entry.Metadata, entry.Level)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.LogEntry, error) {
	query :=
		`SELECT id, ts, message, user_id, signature, metadata, level
		 FROM logs
		 ORDER BY ts DESC
		 LIMIT $1
		 `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.LogEntry
	for rows.Next() {
		entry := &models.LogEntry{}
		err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Message,
			&entry.UserID, &entry.Signature, &entry.Metadata, &entry.Level)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
