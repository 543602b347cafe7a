package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

// JobCancellationEmail is the queue job kind (and Kafka topic) carrying a
// canceled appointment for out-of-process email delivery.
const JobCancellationEmail = "booking.appointment.cancelled.v1"

// CancellationWindow is the minimum lead time between a cancellation request
// and the appointment slot.
const CancellationWindow = 2 * time.Hour

type UserStore interface {
	// GetByID returns ErrNotFound when no such user exists.
	GetByID(ctx context.Context, id string) (model.User, error)
	// GetProvider returns ErrNotFound unless id references a user with the
	// provider flag set.
	GetProvider(ctx context.Context, id string) (model.User, error)
}

type AppointmentStore interface {
	// Create returns ErrSlotUnavailable when an active appointment already
	// holds (provider_id, date).
	Create(ctx context.Context, appt *model.Appointment) error
	// GetWithParties returns the appointment with booker and provider identity
	// attached, or ErrNotFound.
	GetWithParties(ctx context.Context, id string) (model.Appointment, error)
	ExistsActive(ctx context.Context, providerID string, date time.Time) (bool, error)
	// ListActiveForProvider returns non-canceled appointments with date in
	// [from, to), ordered by date, booker attached.
	ListActiveForProvider(ctx context.Context, providerID string, from, to time.Time) ([]model.Appointment, error)
	// ListActiveForUser returns the booker's non-canceled appointments,
	// paginated, provider attached.
	ListActiveForUser(ctx context.Context, userID string, limit, offset int) ([]model.Appointment, error)
	Cancel(ctx context.Context, id string, at time.Time) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	// MarkRead returns ErrNotFound unless the notification exists and belongs
	// to userID.
	MarkRead(ctx context.Context, userID, id string) (model.Notification, error)
}

// Queue submits an asynchronous job for out-of-process delivery. The contract
// is at-least-once: callers get no delivery confirmation.
type Queue interface {
	Enqueue(ctx context.Context, jobKind, subject string, payload []byte) error
}

// Service holds the booking rules. It is stateless; all state lives behind the
// injected stores.
type Service struct {
	users         UserStore
	appointments  AppointmentStore
	notifications NotificationStore
	queue         Queue
	schedule      availability.Schedule
	logger        *slog.Logger
}

func NewService(
	users UserStore,
	appointments AppointmentStore,
	notifications NotificationStore,
	queue Queue,
	schedule availability.Schedule,
	logger *slog.Logger,
) *Service {
	if len(schedule) == 0 {
		schedule = availability.DefaultSchedule
	}
	return &Service{
		users:         users,
		appointments:  appointments,
		notifications: notifications,
		queue:         queue,
		schedule:      schedule,
		logger:        logger,
	}
}

// CreateAppointment books the hour slot containing requested for bookerID with
// providerID. Check order is fixed: provider existence, self-booking, past
// date, slot collision. The first failing check decides the returned error.
func (s *Service) CreateAppointment(ctx context.Context, bookerID, providerID string, requested, now time.Time) (model.Appointment, error) {
	provider, err := s.users.GetProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Appointment{}, ErrInvalidProvider
		}
		return model.Appointment{}, err
	}

	if bookerID == providerID {
		return model.Appointment{}, ErrSelfBooking
	}

	hourStart := availability.HourStart(requested)
	if hourStart.Before(now) {
		return model.Appointment{}, ErrPastDate
	}

	taken, err := s.appointments.ExistsActive(ctx, providerID, hourStart)
	if err != nil {
		return model.Appointment{}, err
	}
	if taken {
		return model.Appointment{}, ErrSlotUnavailable
	}

	booker, err := s.users.GetByID(ctx, bookerID)
	if err != nil {
		return model.Appointment{}, err
	}

	appt := model.Appointment{
		ID:         uuid.NewString(),
		UserID:     bookerID,
		ProviderID: providerID,
		Date:       hourStart,
		Booker:     model.Person{ID: booker.ID, Name: booker.Name, Email: booker.Email},
		Provider:   model.Person{ID: provider.ID, Name: provider.Name, Email: provider.Email},
	}
	// The storage layer holds a partial unique index on (provider_id, date)
	// for non-canceled rows; a concurrent booking that slipped past the check
	// above surfaces here as ErrSlotUnavailable.
	if err := s.appointments.Create(ctx, &appt); err != nil {
		return model.Appointment{}, err
	}

	// Not in the same transaction as the appointment write. A failure here
	// leaves the booking in place without its notification; log and move on.
	notification := model.Notification{
		UserID:  providerID,
		Content: fmt.Sprintf("New booking from %s on %s", booker.Name, formatSlot(hourStart)),
	}
	if err := s.notifications.Create(ctx, &notification); err != nil {
		s.logger.Error("booking notification write failed", "err", err, "appointment_id", appt.ID)
	}

	return appt, nil
}

// ListAvailability resolves the daily schedule against a provider's bookings on
// the day containing day. The result always has one entry per schedule slot.
func (s *Service) ListAvailability(ctx context.Context, providerID string, day, now time.Time) ([]availability.Slot, error) {
	from, to := availability.DayBounds(day)
	appts, err := s.appointments.ListActiveForProvider(ctx, providerID, from, to)
	if err != nil {
		return nil, err
	}
	booked := make([]time.Time, 0, len(appts))
	for _, a := range appts {
		booked = append(booked, a.Date)
	}
	return s.schedule.Slots(day, booked, now), nil
}

// CancelAppointment marks the appointment canceled and enqueues the
// cancellation email for the provider. Only the booker may cancel, and only
// while more than CancellationWindow remains before the slot.
func (s *Service) CancelAppointment(ctx context.Context, appointmentID, requesterID string, now time.Time) (model.Appointment, error) {
	appt, err := s.appointments.GetWithParties(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}

	if appt.UserID != requesterID {
		return model.Appointment{}, ErrNotOwner
	}
	if appt.CanceledAt != nil {
		// Repeated cancellation of an already-canceled appointment is a no-op.
		return appt, nil
	}
	if !appt.Date.Add(-CancellationWindow).After(now) {
		return model.Appointment{}, ErrCancellationWindow
	}

	if err := s.appointments.Cancel(ctx, appointmentID, now); err != nil {
		return model.Appointment{}, err
	}
	appt.CanceledAt = &now

	// Fire-and-forget: the appointment update above is already committed, and
	// email delivery belongs to the queue worker. An enqueue failure is logged,
	// not surfaced.
	payload, err := json.Marshal(CancellationJob{
		AppointmentID: appt.ID,
		Date:          appt.Date.UTC().Format(time.RFC3339),
		CanceledAt:    now.UTC().Format(time.RFC3339),
		Provider:      JobParty{Name: appt.Provider.Name, Email: appt.Provider.Email},
		User:          JobParty{Name: appt.Booker.Name, Email: appt.Booker.Email},
	})
	if err == nil {
		err = s.queue.Enqueue(ctx, JobCancellationEmail, appt.ID, payload)
	}
	if err != nil {
		s.logger.Error("cancellation job enqueue failed", "err", err, "appointment_id", appt.ID)
	}

	return appt, nil
}

// ProviderSchedule lists the provider's own non-canceled appointments for the
// day containing day, ordered by slot time and with booker identity attached.
func (s *Service) ProviderSchedule(ctx context.Context, providerID string, day time.Time) ([]model.Appointment, error) {
	if _, err := s.users.GetProvider(ctx, providerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidProvider
		}
		return nil, err
	}
	from, to := availability.DayBounds(day)
	return s.appointments.ListActiveForProvider(ctx, providerID, from, to)
}

const appointmentsPerPage = 20

// ListAppointments returns page (1-based) of the booker's upcoming and past
// non-canceled appointments.
func (s *Service) ListAppointments(ctx context.Context, bookerID string, page int) ([]model.Appointment, error) {
	if page < 1 {
		page = 1
	}
	return s.appointments.ListActiveForUser(ctx, bookerID, appointmentsPerPage, (page-1)*appointmentsPerPage)
}

// ListNotifications returns the provider's latest notifications. Non-provider
// accounts have none and get ErrInvalidProvider.
func (s *Service) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	if _, err := s.users.GetProvider(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidProvider
		}
		return nil, err
	}
	return s.notifications.ListForUser(ctx, userID, 20)
}

// MarkNotificationRead flags one of the user's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID string) (model.Notification, error) {
	return s.notifications.MarkRead(ctx, userID, notificationID)
}

// CancellationJob is the queue payload for JobCancellationEmail.
type CancellationJob struct {
	AppointmentID string   `json:"appointment_id"`
	Date          string   `json:"date"`
	CanceledAt    string   `json:"canceled_at"`
	Provider      JobParty `json:"provider"`
	User          JobParty `json:"user"`
}

type JobParty struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func formatSlot(t time.Time) string {
	return t.Format("January 2 at 15:04")
}
