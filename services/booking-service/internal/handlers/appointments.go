package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
)

type AppointmentHandler struct {
	svc     *booking.Service
	logger  *slog.Logger
	baseURL string
}

func NewAppointmentHandler(svc *booking.Service, logger *slog.Logger, baseURL string) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, logger: logger, baseURL: baseURL}
}

type createAppointmentRequest struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
}

type cancelAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// ServeHTTP dispatches on method: POST books, GET lists the authenticated
// user's bookings.
func (h *AppointmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AppointmentHandler) create(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if req.ProviderID == "" || strings.TrimSpace(req.Date) == "" {
		writeError(w, http.StatusBadRequest, "provider_id and date are required")
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be RFC 3339")
		return
	}

	now := time.Now().UTC()
	appt, err := h.svc.CreateAppointment(r.Context(), userID, req.ProviderID, date, now)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAppointmentView(appt, h.baseURL, now))
}

func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	page := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	appts, err := h.svc.ListAppointments(r.Context(), userID, page)
	if err != nil {
		h.logger.Error("appointment list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, newAppointmentViews(appts, h.baseURL, time.Now().UTC()))
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req cancelAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		writeError(w, http.StatusBadRequest, "appointment_id is required")
		return
	}

	now := time.Now().UTC()
	appt, err := h.svc.CancelAppointment(r.Context(), req.AppointmentID, userID, now)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAppointmentView(appt, h.baseURL, now))
}
