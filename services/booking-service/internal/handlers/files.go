package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage"
)

const maxAvatarBytes = 5 << 20

type FileHandler struct {
	users   *storage.UserRepository
	files   *storage.FileRepository
	logger  *slog.Logger
	dir     string
	baseURL string
}

func NewFileHandler(users *storage.UserRepository, files *storage.FileRepository, logger *slog.Logger, dir, baseURL string) *FileHandler {
	return &FileHandler{users: users, files: files, logger: logger, dir: dir, baseURL: baseURL}
}

// UploadAvatar stores the uploaded image on disk, records it, and points the
// authenticated user's avatar at it. A previous avatar file is removed from
// disk best-effort.
func (h *FileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
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

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	src, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer src.Close()

	storedName, err := randomFileName(header.Filename)
	if err != nil {
		h.logger.Error("file name generation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	dst, err := os.Create(filepath.Join(h.dir, storedName))
	if err != nil {
		h.logger.Error("avatar file create failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	f := model.File{
		ID:   uuid.NewString(),
		Name: header.Filename,
		Path: storedName,
	}
	if err := h.files.Create(r.Context(), f); err != nil {
		_ = os.Remove(filepath.Join(h.dir, storedName))
		h.logger.Error("file record create failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	if err := h.users.SetAvatar(r.Context(), userID, f.ID); err != nil {
		h.logger.Error("avatar update failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to update avatar")
		return
	}

	if current.Avatar != nil && current.Avatar.Path != "" {
		if err := os.Remove(filepath.Join(h.dir, current.Avatar.Path)); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("old avatar cleanup failed", "path", current.Avatar.Path, "err", err)
		}
	}

	updated, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("user reload failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, newUserView(updated, h.baseURL))
}

// Serve exposes stored files read-only under the /files/ prefix.
func (h *FileHandler) Serve() http.Handler {
	return http.StripPrefix("/files/", http.FileServer(http.Dir(h.dir)))
}

func randomFileName(original string) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(original))
	return hex.EncodeToString(buf) + ext, nil
}
