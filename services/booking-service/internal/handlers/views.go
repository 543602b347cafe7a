package handlers

import (
	"time"

	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

type userView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Provider  bool   `json:"provider"`
	AvatarURL string `json:"avatar_url,omitempty"`
	CreatedAt string `json:"created_at"`
}

type partyView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type appointmentView struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	CanceledAt string    `json:"canceled_at,omitempty"`
	Past       bool      `json:"past"`
	Cancelable bool      `json:"cancelable"`
	Booker     partyView `json:"booker"`
	Provider   partyView `json:"provider"`
	CreatedAt  string    `json:"created_at"`
}

type notificationView struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

type slotView struct {
	Time      string `json:"time"`
	Value     string `json:"value"`
	Available bool   `json:"available"`
}

// avatarURL composes the public URL for a stored avatar file. Empty path
// means no avatar was uploaded.
func avatarURL(baseURL, path string) string {
	if path == "" {
		return ""
	}
	return baseURL + "/files/" + path
}

func newUserView(u model.User, baseURL string) userView {
	v := userView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Provider:  u.Provider,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if u.Avatar != nil {
		v.AvatarURL = avatarURL(baseURL, u.Avatar.Path)
	}
	return v
}

func newAppointmentView(a model.Appointment, baseURL string, now time.Time) appointmentView {
	v := appointmentView{
		ID:   a.ID,
		Date: a.Date.UTC().Format(time.RFC3339),
		Booker: partyView{
			ID:        a.Booker.ID,
			Name:      a.Booker.Name,
			AvatarURL: avatarURL(baseURL, a.Booker.AvatarPath),
		},
		Provider: partyView{
			ID:        a.Provider.ID,
			Name:      a.Provider.Name,
			AvatarURL: avatarURL(baseURL, a.Provider.AvatarPath),
		},
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
	v.Past = a.Date.Before(now)
	v.Cancelable = a.CanceledAt == nil && a.Date.Add(-booking.CancellationWindow).After(now)
	if a.CanceledAt != nil {
		v.CanceledAt = a.CanceledAt.UTC().Format(time.RFC3339)
	}
	return v
}

func newAppointmentViews(appts []model.Appointment, baseURL string, now time.Time) []appointmentView {
	out := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, newAppointmentView(a, baseURL, now))
	}
	return out
}

func newNotificationViews(ns []model.Notification) []notificationView {
	out := make([]notificationView, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationView{
			ID:        n.ID,
			Content:   n.Content,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
