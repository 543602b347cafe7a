package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage"
)

type SessionHandler struct {
	users    *storage.UserRepository
	logger   *slog.Logger
	secret   string
	tokenTTL time.Duration
	baseURL  string
}

func NewSessionHandler(users *storage.UserRepository, logger *slog.Logger, secret string, tokenTTL time.Duration, baseURL string) *SessionHandler {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &SessionHandler{users: users, logger: logger, secret: secret, tokenTTL: tokenTTL, baseURL: baseURL}
}

type sessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  userView `json:"user"`
	Token string   `json:"token"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "incorrect email or password")
			return
		}
		h.logger.Error("user lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}

	token, err := auth.SignToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		h.logger.Error("token sign failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		User:  newUserView(user, h.baseURL),
		Token: token,
	})
}
