package storage

import (
	"context"
	"time"

	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, user_id, provider_id, date)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, appt.ID, appt.UserID, appt.ProviderID, appt.Date).Scan(&appt.CreatedAt)
	// The partial unique index on (provider_id, date) WHERE canceled_at IS NULL
	// closes the check-then-create race between concurrent bookings.
	if isUniqueViolation(err) {
		return booking.ErrSlotUnavailable
	}
	return err
}

const appointmentColumns = `
	a.id, a.user_id, a.provider_id, a.date, a.canceled_at, a.created_at,
	b.name, b.email,
	p.name, p.email, COALESCE(pf.path, '')`

const appointmentJoins = `
	FROM appointments a
	JOIN users b ON b.id = a.user_id
	JOIN users p ON p.id = a.provider_id
	LEFT JOIN files pf ON pf.id = p.avatar_id`

func (r *AppointmentRepository) GetWithParties(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+appointmentJoins+`
		WHERE a.id = $1
	`, id))
	if isNoRows(err) {
		return model.Appointment{}, booking.ErrNotFound
	}
	return appt, err
}

func (r *AppointmentRepository) ExistsActive(ctx context.Context, providerID string, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE provider_id = $1 AND date = $2 AND canceled_at IS NULL
		)
	`, providerID, date).Scan(&exists)
	return exists, err
}

func (r *AppointmentRepository) ListActiveForProvider(ctx context.Context, providerID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+appointmentJoins+`
		WHERE a.provider_id = $1
			AND a.canceled_at IS NULL
			AND a.date >= $2
			AND a.date < $3
		ORDER BY a.date
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *AppointmentRepository) ListActiveForUser(ctx context.Context, userID string, limit, offset int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+appointmentJoins+`
		WHERE a.user_id = $1 AND a.canceled_at IS NULL
		ORDER BY a.date
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *AppointmentRepository) Cancel(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments SET canceled_at = $2 WHERE id = $1 AND canceled_at IS NULL
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

type pgxRows interface {
	rowScanner
	Next() bool
	Close()
	Err() error
}

func collectAppointments(rows pgxRows) ([]model.Appointment, error) {
	defer rows.Close()
	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var appt model.Appointment
	if err := row.Scan(
		&appt.ID, &appt.UserID, &appt.ProviderID, &appt.Date, &appt.CanceledAt, &appt.CreatedAt,
		&appt.Booker.Name, &appt.Booker.Email,
		&appt.Provider.Name, &appt.Provider.Email, &appt.Provider.AvatarPath,
	); err != nil {
		return model.Appointment{}, err
	}
	appt.Booker.ID = appt.UserID
	appt.Provider.ID = appt.ProviderID
	return appt, nil
}
