package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slotbook/slotbook/libs/db"
	otelx "github.com/slotbook/slotbook/libs/otel"
)

// Repository persists queued jobs. Enqueue is a single insert outside any
// caller transaction: the submission is durable once Enqueue returns, and the
// publisher delivers it at least once.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Enqueue(ctx context.Context, jobKind, subject string, payload []byte) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO outbox_jobs (job_id, job_kind, subject, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), jobKind, subject, payload, traceparent, tracestate)
	return err
}

type Record struct {
	ID          int64
	JobID       string
	JobKind     string
	Subject     string
	Payload     []byte
	Traceparent string
	Tracestate  string
	CreatedAt   time.Time
}

func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, job_id, job_kind, subject, payload, traceparent, tracestate, created_at
		FROM outbox_jobs
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.JobID, &rcd.JobKind, &rcd.Subject, &rcd.Payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox_jobs
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}
