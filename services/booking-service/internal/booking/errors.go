package booking

import "errors"

// Rejections surfaced to the caller. None are retried internally; the user must
// resubmit with corrected input.
var (
	ErrInvalidProvider    = errors.New("appointments can only be created with providers")
	ErrSelfBooking        = errors.New("cannot book an appointment with yourself")
	ErrPastDate           = errors.New("past dates are not permitted")
	ErrSlotUnavailable    = errors.New("appointment slot is not available")
	ErrNotOwner           = errors.New("only the booking user may cancel an appointment")
	ErrCancellationWindow = errors.New("appointments can only be canceled at least two hours in advance")
	ErrNotFound           = errors.New("not found")
)
