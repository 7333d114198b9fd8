package domain

import "time"

type EventType string

const (
	EventBookingCreated EventType = "booking.created"
	EventBookingUpdated EventType = "booking.status_changed"

	// EventScheduleChanged carries no date: every day of the provider is affected.
	EventScheduleChanged EventType = "provider.schedule_changed"
)

// AvailabilityEvent tells subscribers that a provider's day changed and
// availability should be fetched again.
type AvailabilityEvent struct {
	Type       EventType     `json:"type"`
	ProviderID int64         `json:"provider_id"`
	Date       string        `json:"date,omitempty"`
	BookingID  int64         `json:"booking_id,omitempty"`
	Status     BookingStatus `json:"status,omitempty"`
	Start      TimeOfDay     `json:"start"`
	End        TimeOfDay     `json:"end"`
	At         time.Time     `json:"at"`
}
