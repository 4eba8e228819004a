package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const fileColumns = `id, owner_id, iv, wrapped_owner_key, original_name, original_type, size, storage_key, created_at, updated_at`

func scanFile(row interface{ Scan(dest ...any) error }) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.OwnerID, &f.IV, &f.WrappedOwnerKey,
		&f.OriginalName, &f.OriginalType, &f.Size, &f.StorageKey,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {

	query :=
		`INSERT INTO files (id, owner_id, iv, wrapped_owner_key, original_name, original_type, size, storage_key)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.OwnerID, file.IV, file.WrappedOwnerKey,
		file.OriginalName, file.OriginalType, file.Size, file.StorageKey).Scan(&file.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	file, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 ORDER BY created_at DESC`

	return r.queryList(ctx, query, ownerID)
}

func (r *PostgresRepository) ListSharedWith(ctx context.Context, userID string) ([]*models.File, error) {
	query :=
		`SELECT f.id, f.owner_id, f.iv, f.wrapped_owner_key, f.original_name, f.original_type, f.size, f.storage_key, f.created_at, f.updated_at
		 FROM files f
		 JOIN file_access a ON a.file_id = f.id
		 WHERE a.shared_with = $1
		 ORDER BY f.created_at DESC
		 `

	return r.queryList(ctx, query, userID)
}

func (r *PostgresRepository) queryList(ctx context.Context, query string, args ...any) ([]*models.File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, file *models.File) error {
	query :=
		`UPDATE files
		 SET iv = $2, wrapped_owner_key = $3, original_name = $4, original_type = $5, size = $6, storage_key = $7, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		file.ID, file.IV, file.WrappedOwnerKey, file.OriginalName,
		file.OriginalType, file.Size, file.StorageKey)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}

	return nil
}
