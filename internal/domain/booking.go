package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled, BookingCompleted},
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown booking status %q", ErrValidation, s)
}

// Occupying reports whether a booking in this status blocks its time window.
func (s BookingStatus) Occupying() bool {
	return s == BookingPending || s == BookingConfirmed
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OccupyingStatuses is the status set that consumes a slot.
var OccupyingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

type Booking struct {
	ID                 int64         `json:"id"`
	CustomerID         int64         `json:"customer_id"`
	ProviderID         int64         `json:"provider_id"`
	ServiceID          int64         `json:"service_id"`
	Date               string        `json:"date"`
	StartTime          TimeOfDay     `json:"start_time"`
	EndTime            TimeOfDay     `json:"end_time"`
	Status             BookingStatus `json:"status"`
	TotalPrice         float64       `json:"total_price"`
	Currency           string        `json:"currency"`
	Notes              string        `json:"notes,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// Transition moves the booking to next, enforcing the status table.
func (b *Booking) Transition(next BookingStatus, reason string, now time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, next)
	}
	b.Status = next
	b.UpdatedAt = now
	if next == BookingCancelled {
		b.CancelledAt = &now
		b.CancellationReason = reason
	}
	return nil
}
