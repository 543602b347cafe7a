package storage

import (
	"context"

	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, provider)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Provider)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

const userColumns = `
	u.id, u.name, u.email, u.password_hash, u.provider, u.avatar_id, u.created_at,
	f.id, f.name, f.path`

const userJoin = `
	FROM users u
	LEFT JOIN files f ON f.id = u.avatar_id`

func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, `SELECT`+userColumns+userJoin+` WHERE u.id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, `SELECT`+userColumns+userJoin+` WHERE u.email = $1`, email)
}

func (r *UserRepository) GetProvider(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, `SELECT`+userColumns+userJoin+` WHERE u.id = $1 AND u.provider`, id)
}

func (r *UserRepository) ListProviders(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+userColumns+userJoin+` WHERE u.provider ORDER BY u.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateProfile(ctx context.Context, u model.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4
		WHERE id = $1
	`, u.ID, u.Name, u.Email, u.PasswordHash)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetAvatar(ctx context.Context, userID, fileID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET avatar_id = $2 WHERE id = $1
	`, userID, fileID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if isNoRows(err) {
		return model.User{}, booking.ErrNotFound
	}
	return u, err
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var fileID, fileName, filePath *string
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Provider, &u.AvatarID, &u.CreatedAt,
		&fileID, &fileName, &filePath,
	); err != nil {
		return model.User{}, err
	}
	if fileID != nil {
		u.Avatar = &model.File{ID: *fileID, Name: *fileName, Path: *filePath}
	}
	return u, nil
}
