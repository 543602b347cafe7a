package model

import "time"

// Appointment is a single booked hour slot. Date is always aligned to the start
// of an hour. A canceled appointment keeps its row; CanceledAt marks it.
type Appointment struct {
	ID         string
	UserID     string
	ProviderID string
	Date       time.Time
	CanceledAt *time.Time
	CreatedAt  time.Time

	// Attached identities, populated by join queries where the caller needs them
	// (listings, cancellation emails).
	Booker   Person
	Provider Person
}

// Person is the identity slice of a User attached to an appointment.
type Person struct {
	ID         string
	Name       string
	Email      string
	AvatarPath string
}
