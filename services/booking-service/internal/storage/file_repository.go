package storage

import (
	"context"

	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

type FileRepository struct {
	pool *db.Pool
}

func NewFileRepository(pool *db.Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

func (r *FileRepository) Create(ctx context.Context, f model.File) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO files (id, name, path)
		VALUES ($1, $2, $3)
	`, f.ID, f.Name, f.Path)
	return err
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (model.File, error) {
	var f model.File
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, path FROM files WHERE id = $1
	`, id).Scan(&f.ID, &f.Name, &f.Path)
	if isNoRows(err) {
		return model.File{}, booking.ErrNotFound
	}
	return f, err
}
