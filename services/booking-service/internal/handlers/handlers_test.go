package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage"
)

const testSecret = "test-secret"

func TestRequireAuth(t *testing.T) {
	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = httpx.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := RequireAuth(testSecret)(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := auth.SignToken("user-1", "other-secret", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := auth.SignToken("user-1", testSecret, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotUserID != "user-1" {
			t.Fatalf("user id = %q, want user-1", gotUserID)
		}
	})
}

func TestWriteDomainErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{booking.ErrInvalidProvider, http.StatusUnprocessableEntity},
		{booking.ErrSelfBooking, http.StatusUnprocessableEntity},
		{booking.ErrPastDate, http.StatusUnprocessableEntity},
		{booking.ErrCancellationWindow, http.StatusUnprocessableEntity},
		{booking.ErrSlotUnavailable, http.StatusConflict},
		{booking.ErrNotOwner, http.StatusUnauthorized},
		{booking.ErrNotFound, http.StatusNotFound},
		{storage.ErrEmailTaken, http.StatusConflict},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		if rec.Code != tc.want {
			t.Errorf("writeDomainError(%v) = %d, want %d", tc.err, rec.Code, tc.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
	}
}

func TestAppointmentViewFlags(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	base := model.Appointment{
		ID:       "appt-1",
		Date:     now.Add(3 * time.Hour),
		Booker:   model.Person{ID: "u1", Name: "Ana"},
		Provider: model.Person{ID: "p1", Name: "Bia", AvatarPath: "abc.png"},
	}

	v := newAppointmentView(base, "http://api.local", now)
	if !v.Cancelable {
		t.Error("appointment 3h out should be cancelable")
	}
	if v.Past {
		t.Error("future appointment flagged past")
	}
	if v.Provider.AvatarURL != "http://api.local/files/abc.png" {
		t.Errorf("avatar url = %q", v.Provider.AvatarURL)
	}
	if v.Booker.AvatarURL != "" {
		t.Errorf("booker without avatar got url %q", v.Booker.AvatarURL)
	}

	soon := base
	soon.Date = now.Add(2 * time.Hour)
	if newAppointmentView(soon, "", now).Cancelable {
		t.Error("appointment exactly 2h out must not be cancelable")
	}

	canceledAt := now.Add(-time.Hour)
	done := base
	done.CanceledAt = &canceledAt
	if newAppointmentView(done, "", now).Cancelable {
		t.Error("canceled appointment must not be cancelable")
	}
}
