package inbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/slotbook/slotbook/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record registers a job delivery. It returns false when the job was already
// seen, which is how redelivered outbox jobs get dropped.
func (r *Repository) Record(ctx context.Context, jobID string, jobKind string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_jobs (job_id, job_kind)
		VALUES ($1, $2)
	`, jobID, jobKind)
	if err == nil {
		return true, nil
	}

	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return false, nil
	}

	return false, err
}
