package model

import "time"

// Notification is an in-app message for a provider, created when one of their
// slots gets booked.
type Notification struct {
	ID        string
	UserID    string
	Content   string
	Read      bool
	CreatedAt time.Time
}
