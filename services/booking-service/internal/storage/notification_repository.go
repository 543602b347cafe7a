package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

type NotificationRepository struct {
	pool *db.Pool
}

func NewNotificationRepository(pool *db.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, n.ID, n.UserID, n.Content).Scan(&n.CreatedAt)
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, content, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) (model.Notification, error) {
	var n model.Notification
	err := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, content, read, created_at
	`, id, userID).Scan(&n.ID, &n.UserID, &n.Content, &n.Read, &n.CreatedAt)
	if isNoRows(err) {
		return model.Notification{}, booking.ErrNotFound
	}
	return n, err
}
