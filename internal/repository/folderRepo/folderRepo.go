package folderRepo

import (
	"context"
	"errors"

	"records-service/internal/model/folder"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FolderRepository is the document store for folder records. The files
// column is a jsonb snapshot of the folder's blob listing; the object store
// stays the source of truth for it.
type FolderRepository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *FolderRepository {
	return &FolderRepository{pool: pool}
}

func (r *FolderRepository) Create(ctx context.Context, f *folder.Folder) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO folders (id, owner_id, name, date, files, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.OwnerID, f.Name, f.Date, f.Files, f.CreatedAt)
	return err
}

func (r *FolderRepository) GetByID(ctx context.Context, folderID uuid.UUID) (*folder.Folder, error) {
	var f folder.Folder
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, date, files, created_at
		 FROM folders WHERE id = $1`, folderID).
		Scan(&f.ID, &f.OwnerID, &f.Name, &f.Date, &f.Files, &f.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FolderRepository) ListByOwner(ctx context.Context, ownerID uint32) ([]*folder.Folder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, name, date, files, created_at
		 FROM folders WHERE owner_id = $1
		 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*folder.Folder
	for rows.Next() {
		var f folder.Folder
		if err := rows.Scan(
			&f.ID, &f.OwnerID, &f.Name, &f.Date, &f.Files, &f.CreatedAt,
		); err != nil {
			return nil, err
		}
		folders = append(folders, &f)
	}
	return folders, rows.Err()
}

func (r *FolderRepository) UpdateName(ctx context.Context, folderID uuid.UUID, name string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE folders SET name = $1 WHERE id = $2",
		name, folderID)
	return err
}

func (r *FolderRepository) UpdateFiles(ctx context.Context, folderID uuid.UUID, files []folder.File) error {
	if files == nil {
		files = []folder.File{}
	}
	_, err := r.pool.Exec(ctx,
		"UPDATE folders SET files = $1 WHERE id = $2",
		files, folderID)
	return err
}

func (r *FolderRepository) Delete(ctx context.Context, folderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM folders WHERE id = $1", folderID)
	return err
}
