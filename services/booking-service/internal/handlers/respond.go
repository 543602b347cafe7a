package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps booking sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic message.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidProvider):
		writeError(w, http.StatusUnprocessableEntity, "provider not found")
	case errors.Is(err, booking.ErrSelfBooking):
		writeError(w, http.StatusUnprocessableEntity, "cannot book an appointment with yourself")
	case errors.Is(err, booking.ErrPastDate):
		writeError(w, http.StatusUnprocessableEntity, "cannot book an appointment in the past")
	case errors.Is(err, booking.ErrCancellationWindow):
		writeError(w, http.StatusUnprocessableEntity, "appointments can only be canceled at least 2 hours in advance")
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "time slot already booked")
	case errors.Is(err, booking.ErrNotOwner):
		writeError(w, http.StatusUnauthorized, "you can only cancel your own appointments")
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already in use")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
