package availability

import (
	"context"
	"fmt"

	"appointly/internal/domain"
	"appointly/internal/modules/schedule"
)

// Resolver combines working hours, slot generation and the occupying set of
// the ledger into the list of bookable start times for one day.
type Resolver struct {
	ledger      BookingLedger
	granularity int
}

func NewResolver(ledger BookingLedger, granularityMinutes int) *Resolver {
	if granularityMinutes <= 0 {
		granularityMinutes = schedule.DefaultGranularityMinutes
	}
	return &Resolver{ledger: ledger, granularity: granularityMinutes}
}

func (r *Resolver) Granularity() int {
	return r.granularity
}

// AvailableSlots returns the bookable windows for service on date, in
// chronological order. Each slot spans [start, start+duration). A candidate
// is dropped when the service would not finish inside its open interval or
// when the window overlaps an occupying booking. The call has no side effects.
func (r *Resolver) AvailableSlots(ctx context.Context, provider *domain.Provider, service *domain.Service, date string) ([]domain.Slot, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if !service.Available {
		return []domain.Slot{}, nil
	}
	if service.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: service %d has non-positive duration", domain.ErrValidation, service.ID)
	}

	intervals := schedule.IntervalsForProvider(provider, day.Weekday())
	if len(intervals) == 0 {
		return []domain.Slot{}, nil
	}

	occupying, err := r.ledger.BookingsFor(ctx, provider.ID, date, false)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Slot, 0)
	for _, open := range intervals {
		candidates, err := schedule.Generate([]domain.Interval{open}, r.granularity)
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			window := domain.Interval{Start: c.Start, End: c.Start.Add(service.DurationMinutes)}
			if !open.Contains(window) {
				continue
			}
			if overlapsAny(window, occupying) {
				continue
			}
			out = append(out, domain.Slot{Start: window.Start, End: window.End})
		}
	}
	return out, nil
}

// Offers reports whether start is one of the available slot starts.
func Offers(slots []domain.Slot, start domain.TimeOfDay) bool {
	for _, s := range slots {
		if s.Start == start {
			return true
		}
	}
	return false
}

func overlapsAny(window domain.Interval, bookings []domain.Booking) bool {
	for i := range bookings {
		if !bookings[i].Status.Occupying() {
			continue
		}
		if window.Overlaps(bookings[i].Interval()) {
			return true
		}
	}
	return false
}
