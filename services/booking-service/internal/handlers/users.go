package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage"
)

type UserHandler struct {
	users   *storage.UserRepository
	logger  *slog.Logger
	baseURL string
}

func NewUserHandler(users *storage.UserRepository, logger *slog.Logger, baseURL string) *UserHandler {
	return &UserHandler{users: users, logger: logger, baseURL: baseURL}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Provider bool   `json:"provider"`
}

type updateProfileRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	OldPassword string `json:"old_password"`
	Password    string `json:"password"`
}

// ServeHTTP dispatches on method: POST registers, PUT updates the
// authenticated user's profile.
func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.register(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *UserHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("password hash failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	u := model.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Provider:     req.Provider,
	}
	if err := h.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already in use")
			return
		}
		h.logger.Error("user create failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	created, err := h.users.GetByID(r.Context(), u.ID)
	if err != nil {
		h.logger.Error("user reload failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, newUserView(created, h.baseURL))
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	current, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "user no longer exists")
			return
		}
		h.logger.Error("user load failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	current.Name = req.Name
	current.Email = req.Email

	// Password changes require proof of the old one.
	if req.Password != "" {
		if req.OldPassword == "" {
			writeError(w, http.StatusBadRequest, "old_password is required to set a new password")
			return
		}
		if !auth.CheckPassword(current.PasswordHash, req.OldPassword) {
			writeError(w, http.StatusUnauthorized, "old password does not match")
			return
		}
		if len(req.Password) < 6 {
			writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			h.logger.Error("password hash failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		current.PasswordHash = hash
	}

	if err := h.users.UpdateProfile(r.Context(), current); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already in use")
			return
		}
		h.logger.Error("profile update failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	updated, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("user reload failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, newUserView(updated, h.baseURL))
}
