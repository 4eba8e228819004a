package grants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avolkov-dev/filevault/internal/common"
	"github.com/avolkov-dev/filevault/internal/dbx"
	"github.com/avolkov-dev/filevault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, grant *models.AccessGrant) (*models.AccessGrant, error) {

	query :=
		`INSERT INTO file_access (id, file_id, shared_with, owner_id, wrapped_key)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		grant.ID, grant.FileID, grant.SharedWith, grant.OwnerID, grant.WrappedKey).Scan(&grant.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrAlreadyShared
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return grant, nil
}

func (r *PostgresRepository) Get(ctx context.Context, fileID, sharedWith string) (*models.AccessGrant, error) {
	query :=
		`SELECT id, file_id, shared_with, owner_id, wrapped_key, created_at
		 FROM file_access
		 WHERE file_id = $1 AND shared_with = $2
		 `

	grant := &models.AccessGrant{}
	err := r.db.QueryRowContext(ctx, query, fileID, sharedWith).Scan(
		&grant.ID, &grant.FileID, &grant.SharedWith, &grant.OwnerID,
		&grant.WrappedKey, &grant.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return grant, nil
}

func (r *PostgresRepository) ListByFile(ctx context.Context, fileID string) ([]*models.AccessGrant, error) {
	query :=
		`SELECT id, file_id, shared_with, owner_id, wrapped_key, created_at
		 FROM file_access
		 WHERE file_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AccessGrant
	for rows.Next() {
		grant := &models.AccessGrant{}
		err := rows.Scan(&grant.ID, &grant.FileID, &grant.SharedWith,
			&grant.OwnerID, &grant.WrappedKey, &grant.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, fileID, sharedWith string) error {
	query := `DELETE FROM file_access WHERE file_id = $1 AND shared_with = $2`

	res, err := r.db.ExecContext(ctx, query, fileID, sharedWith)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotShared
	}

	return nil
}

func (r *PostgresRepository) DeleteByFile(ctx context.Context, fileID string) error {
	query := `DELETE FROM file_access WHERE file_id = $1`

	_, err := r.db.ExecContext(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
