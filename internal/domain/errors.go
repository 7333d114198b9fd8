package domain

import "errors"

// Error taxonomy of the booking core. Callers wrap these with context via
// fmt.Errorf("%w: ...") and match them with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrSlotUnavailable     = errors.New("slot unavailable")
	ErrServiceUnavailable  = errors.New("service unavailable")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrDuplicateReview     = errors.New("duplicate review")
	ErrBookingNotCompleted = errors.New("booking not completed")
	ErrForbidden           = errors.New("forbidden")

	// ErrBusy is returned when a serialized section could not be entered in
	// time. The request did not change any state and may be retried.
	ErrBusy = errors.New("resource busy, retry later")
)
