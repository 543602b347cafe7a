package booking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

type fakeUserStore struct {
	users map[string]model.User
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetProvider(_ context.Context, id string) (model.User, error) {
	u, ok := f.users[id]
	if !ok || !u.Provider {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

type fakeAppointmentStore struct {
	appts   map[string]model.Appointment
	created int
}

func (f *fakeAppointmentStore) Create(_ context.Context, appt *model.Appointment) error {
	for _, a := range f.appts {
		if a.CanceledAt == nil && a.ProviderID == appt.ProviderID && a.Date.Equal(appt.Date) {
			return ErrSlotUnavailable
		}
	}
	f.appts[appt.ID] = *appt
	f.created++
	return nil
}

func (f *fakeAppointmentStore) GetWithParties(_ context.Context, id string) (model.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (f *fakeAppointmentStore) ExistsActive(_ context.Context, providerID string, date time.Time) (bool, error) {
	for _, a := range f.appts {
		if a.CanceledAt == nil && a.ProviderID == providerID && a.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppointmentStore) ListActiveForProvider(_ context.Context, providerID string, from, to time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if a.CanceledAt == nil && a.ProviderID == providerID && !a.Date.Before(from) && a.Date.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentStore) ListActiveForUser(_ context.Context, userID string, limit, offset int) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if a.CanceledAt == nil && a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentStore) Cancel(_ context.Context, id string, at time.Time) error {
	a, ok := f.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.CanceledAt = &at
	f.appts[id] = a
	return nil
}

type fakeNotificationStore struct {
	notifications []model.Notification
}

func (f *fakeNotificationStore) Create(_ context.Context, n *model.Notification) error {
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeNotificationStore) ListForUser(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, userID, id string) (model.Notification, error) {
	for i, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			f.notifications[i].Read = true
			return f.notifications[i], nil
		}
	}
	return model.Notification{}, ErrNotFound
}

type fakeQueue struct {
	jobs []struct {
		kind    string
		subject string
		payload []byte
	}
	fail bool
}

func (f *fakeQueue) Enqueue(_ context.Context, kind, subject string, payload []byte) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.jobs = append(f.jobs, struct {
		kind    string
		subject string
		payload []byte
	}{kind, subject, payload})
	return nil
}

type fixture struct {
	svc           *Service
	users         *fakeUserStore
	appointments  *fakeAppointmentStore
	notifications *fakeNotificationStore
	queue         *fakeQueue
}

func newFixture() *fixture {
	users := &fakeUserStore{users: map[string]model.User{
		"booker-1":   {ID: "booker-1", Name: "Diego", Email: "diego@example.com"},
		"provider-1": {ID: "provider-1", Name: "Ana", Email: "ana@example.com", Provider: true},
		"plain-1":    {ID: "plain-1", Name: "Caio", Email: "caio@example.com"},
	}}
	appointments := &fakeAppointmentStore{appts: map[string]model.Appointment{}}
	notifications := &fakeNotificationStore{}
	queue := &fakeQueue{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		svc:           NewService(users, appointments, notifications, queue, availability.DefaultSchedule, logger),
		users:         users,
		appointments:  appointments,
		notifications: notifications,
		queue:         queue,
	}
}

var (
	now       = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	slot14    = time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)
	requested = time.Date(2024, 1, 10, 14, 23, 0, 0, time.UTC)
)

func TestCreateAppointment_Success(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !appt.Date.Equal(slot14) {
		t.Fatalf("expected date normalized to 14:00, got %s", appt.Date)
	}
	if appt.ID == "" {
		t.Fatal("expected generated appointment id")
	}
	if len(f.notifications.notifications) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(f.notifications.notifications))
	}
	n := f.notifications.notifications[0]
	if n.UserID != "provider-1" {
		t.Fatalf("notification should target the provider, got %s", n.UserID)
	}
	if n.Content == "" {
		t.Fatal("expected formatted notification content")
	}
}

func TestCreateAppointment_InvalidProvider(t *testing.T) {
	f := newFixture()

	// Unknown id and a real user without the provider flag both fail the same way.
	for _, id := range []string{"nope", "plain-1"} {
		_, err := f.svc.CreateAppointment(context.Background(), "booker-1", id, requested, now)
		if !errors.Is(err, ErrInvalidProvider) {
			t.Fatalf("provider %q: expected ErrInvalidProvider, got %v", id, err)
		}
	}
	if len(f.notifications.notifications) != 0 {
		t.Fatal("no notification may be created on a failed booking")
	}
}

func TestCreateAppointment_SelfBooking(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateAppointment(context.Background(), "provider-1", "provider-1", requested, now)
	if !errors.Is(err, ErrSelfBooking) {
		t.Fatalf("expected ErrSelfBooking, got %v", err)
	}
}

func TestCreateAppointment_PastDate(t *testing.T) {
	f := newFixture()

	// 14:23 normalizes to 14:00; with now at 14:10 the slot start is in the past.
	lateNow := time.Date(2024, 1, 10, 14, 10, 0, 0, time.UTC)
	_, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, lateNow)
	if !errors.Is(err, ErrPastDate) {
		t.Fatalf("expected ErrPastDate, got %v", err)
	}
}

func TestCreateAppointment_SlotCollision(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	// Same provider, same hour, different minute within the hour.
	again := time.Date(2024, 1, 10, 14, 55, 0, 0, time.UTC)
	_, err := f.svc.CreateAppointment(context.Background(), "plain-1", "provider-1", again, now)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if len(f.notifications.notifications) != 1 {
		t.Fatalf("expected one notification total, got %d", len(f.notifications.notifications))
	}
}

func TestCreateAppointment_CanceledSlotReopens(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := f.svc.CancelAppointment(context.Background(), appt.ID, "booker-1", now); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := f.svc.CreateAppointment(context.Background(), "plain-1", "provider-1", requested, now); err != nil {
		t.Fatalf("rebooking a canceled slot should succeed: %v", err)
	}
}

func TestCreateAppointment_CheckPrecedence(t *testing.T) {
	f := newFixture()
	past := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	// Provider-existence outranks everything, including a past date.
	_, err := f.svc.CreateAppointment(context.Background(), "booker-1", "nope", past, now)
	if !errors.Is(err, ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider first, got %v", err)
	}

	// Self-booking outranks past-date for a valid provider.
	_, err = f.svc.CreateAppointment(context.Background(), "provider-1", "provider-1", past, now)
	if !errors.Is(err, ErrSelfBooking) {
		t.Fatalf("expected ErrSelfBooking before ErrPastDate, got %v", err)
	}

	// Past-date outranks collision.
	if _, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now); err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}
	lateNow := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	_, err = f.svc.CreateAppointment(context.Background(), "plain-1", "provider-1", requested, lateNow)
	if !errors.Is(err, ErrPastDate) {
		t.Fatalf("expected ErrPastDate before ErrSlotUnavailable, got %v", err)
	}
}

func TestListAvailability(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now); err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}

	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.ListAvailability(context.Background(), "provider-1", day, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 12 {
		t.Fatalf("expected 12 slots, got %d", len(slots))
	}
	for _, slot := range slots {
		switch slot.Label {
		case "8:00", "9:00":
			if slot.Available {
				t.Fatalf("slot %s is in the past and must not be available", slot.Label)
			}
		case "14:00":
			if slot.Available {
				t.Fatal("14:00 is booked and must not be available")
			}
		default:
			if !slot.Available {
				t.Fatalf("slot %s should be available", slot.Label)
			}
		}
	}
}

func TestCancelAppointment_Success(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	// 11:59 is more than two hours before 14:00.
	cancelAt := time.Date(2024, 1, 10, 11, 59, 0, 0, time.UTC)
	canceled, err := f.svc.CancelAppointment(context.Background(), appt.ID, "booker-1", cancelAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canceled.CanceledAt == nil || !canceled.CanceledAt.Equal(cancelAt) {
		t.Fatalf("expected canceled_at=%s, got %v", cancelAt, canceled.CanceledAt)
	}
	if len(f.queue.jobs) != 1 {
		t.Fatalf("expected exactly one queued job, got %d", len(f.queue.jobs))
	}
	job := f.queue.jobs[0]
	if job.kind != JobCancellationEmail {
		t.Fatalf("unexpected job kind %s", job.kind)
	}
	var payload CancellationJob
	if err := json.Unmarshal(job.payload, &payload); err != nil {
		t.Fatalf("invalid job payload: %v", err)
	}
	if payload.Provider.Email != "ana@example.com" || payload.User.Name != "Diego" {
		t.Fatalf("payload must carry party identities, got %+v", payload)
	}
}

func TestCancelAppointment_WindowExpired(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	// Exactly two hours before and anything later are both rejected.
	for _, cancelAt := range []time.Time{
		time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 13, 30, 0, 0, time.UTC),
	} {
		_, err := f.svc.CancelAppointment(context.Background(), appt.ID, "booker-1", cancelAt)
		if !errors.Is(err, ErrCancellationWindow) {
			t.Fatalf("cancel at %s: expected ErrCancellationWindow, got %v", cancelAt, err)
		}
	}
	if len(f.queue.jobs) != 0 {
		t.Fatal("no job may be enqueued for a rejected cancellation")
	}
}

func TestCancelAppointment_NotOwner(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	_, err = f.svc.CancelAppointment(context.Background(), appt.ID, "plain-1", now)
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if len(f.queue.jobs) != 0 {
		t.Fatal("no job may be enqueued for a rejected cancellation")
	}
}

func TestCancelAppointment_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CancelAppointment(context.Background(), "missing", "booker-1", now)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelAppointment_AlreadyCanceledIsNoOp(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := f.svc.CancelAppointment(context.Background(), appt.ID, "booker-1", now); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	if _, err := f.svc.CancelAppointment(context.Background(), appt.ID, "booker-1", now); err != nil {
		t.Fatalf("second cancel should be a no-op, got %v", err)
	}
	if len(f.queue.jobs) != 1 {
		t.Fatalf("expected one queued job total, got %d", len(f.queue.jobs))
	}
}

func TestCancelAppointment_EnqueueFailureDoesNotFailCancel(t *testing.T) {
	f := newFixture()
	f.queue.fail = true

	appt, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	canceled, err := f.svc.CancelAppointment(context.Background(), appt.ID, "booker-1", now)
	if err != nil {
		t.Fatalf("cancel must succeed even when enqueue fails: %v", err)
	}
	if canceled.CanceledAt == nil {
		t.Fatal("expected canceled_at to be set")
	}
}

func TestProviderSchedule(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	appts, err := f.svc.ProviderSchedule(context.Background(), "provider-1", day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appts))
	}

	if _, err := f.svc.ProviderSchedule(context.Background(), "plain-1", day); !errors.Is(err, ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider for non-provider, got %v", err)
	}
}

func TestNotifications(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.CreateAppointment(context.Background(), "booker-1", "provider-1", requested, now); err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	f.notifications.notifications[0].ID = "n-1"

	list, err := f.svc.ListNotifications(context.Background(), "provider-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].Read {
		t.Fatalf("expected one unread notification, got %+v", list)
	}

	n, err := f.svc.MarkNotificationRead(context.Background(), "provider-1", "n-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.Read {
		t.Fatal("expected notification marked read")
	}

	if _, err := f.svc.MarkNotificationRead(context.Background(), "booker-1", "n-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("marking another user's notification should fail, got %v", err)
	}

	if _, err := f.svc.ListNotifications(context.Background(), "booker-1"); !errors.Is(err, ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider for non-provider, got %v", err)
	}
}
