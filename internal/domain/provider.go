package domain

import (
	"fmt"
	"sort"
	"time"
)

// WorkingHoursEntry is one weekday of a provider's recurring week.
type WorkingHoursEntry struct {
	Weekday int        `json:"weekday"` // 0=Sunday ... 6=Saturday
	IsOpen  bool       `json:"is_open"`
	Slots   []Interval `json:"slots"`
}

func (e WorkingHoursEntry) Validate() error {
	if e.Weekday < 0 || e.Weekday > 6 {
		return fmt.Errorf("%w: weekday %d out of range", ErrValidation, e.Weekday)
	}
	if !e.IsOpen {
		if len(e.Slots) > 0 {
			return fmt.Errorf("%w: weekday %d is closed but has intervals", ErrValidation, e.Weekday)
		}
		return nil
	}
	if len(e.Slots) == 0 {
		return fmt.Errorf("%w: weekday %d is open without intervals", ErrValidation, e.Weekday)
	}

	sorted := make([]Interval, len(e.Slots))
	copy(sorted, e.Slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i, iv := range sorted {
		if err := iv.Validate(); err != nil {
			return err
		}
		if i > 0 && sorted[i-1].Overlaps(iv) {
			return fmt.Errorf("%w: weekday %d intervals %s-%s and %s-%s overlap",
				ErrValidation, e.Weekday, sorted[i-1].Start, sorted[i-1].End, iv.Start, iv.End)
		}
	}
	return nil
}

type Provider struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	Rating       float64             `json:"rating"`
	ReviewCount  int                 `json:"review_count"`
	WorkingHours []WorkingHoursEntry `json:"working_hours"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// HoursFor returns the entry for the weekday. A weekday without an entry is closed.
func (p *Provider) HoursFor(weekday time.Weekday) WorkingHoursEntry {
	for _, e := range p.WorkingHours {
		if e.Weekday == int(weekday) {
			return e
		}
	}
	return WorkingHoursEntry{Weekday: int(weekday)}
}

// Service is a bookable offering of a provider.
type Service struct {
	ID              int64     `json:"id"`
	ProviderID      int64     `json:"provider_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           float64   `json:"price"`
	Currency        string    `json:"currency"`
	Available       bool      `json:"available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ParseDate parses a yyyy-MM-dd calendar day. The result carries no timezone
// meaning; it is used only for the weekday and as a key.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be yyyy-MM-dd", ErrValidation, s)
	}
	return d, nil
}
