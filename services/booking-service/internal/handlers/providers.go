package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage"
)

type ProviderHandler struct {
	users   *storage.UserRepository
	svc     *booking.Service
	logger  *slog.Logger
	baseURL string
}

func NewProviderHandler(users *storage.UserRepository, svc *booking.Service, logger *slog.Logger, baseURL string) *ProviderHandler {
	return &ProviderHandler{users: users, svc: svc, logger: logger, baseURL: baseURL}
}

func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	providers, err := h.users.ListProviders(r.Context())
	if err != nil {
		h.logger.Error("provider list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list providers")
		return
	}

	items := make([]userView, 0, len(providers))
	for _, p := range providers {
		items = append(items, newUserView(p, h.baseURL))
	}
	writeJSON(w, http.StatusOK, items)
}

// Slots returns the full day grid for a provider, one entry per configured
// slot, each flagged available or not.
func (h *ProviderHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	providerID := strings.TrimSpace(r.URL.Query().Get("provider_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if providerID == "" || dateStr == "" {
		writeError(w, http.StatusBadRequest, "provider_id and date are required")
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.svc.ListAvailability(r.Context(), providerID, day, time.Now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]slotView, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotView{
			Time:      s.Label,
			Value:     s.Value.UTC().Format(time.RFC3339),
			Available: s.Available,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Schedule returns the authenticated provider's own appointments for a day.
func (h *ProviderHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	appts, err := h.svc.ProviderSchedule(r.Context(), userID, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAppointmentViews(appts, h.baseURL, time.Now().UTC()))
}
