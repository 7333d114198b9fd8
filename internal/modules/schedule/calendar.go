package schedule

import (
	"context"
	"sort"
	"time"

	"appointly/internal/domain"
)

// ProviderReader is the read-only provider lookup the calendar needs.
type ProviderReader interface {
	GetProvider(ctx context.Context, id int64) (*domain.Provider, error)
}

// Calendar answers which intervals a provider is open on a weekday.
type Calendar struct {
	providers ProviderReader
}

func NewCalendar(providers ProviderReader) *Calendar {
	return &Calendar{providers: providers}
}

// IntervalsFor returns the provider's open intervals for the weekday, or an
// empty slice when the provider is closed. Unknown providers yield
// domain.ErrNotFound from the reader.
func (c *Calendar) IntervalsFor(ctx context.Context, providerID int64, weekday time.Weekday) ([]domain.Interval, error) {
	p, err := c.providers.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return IntervalsForProvider(p, weekday), nil
}

// IntervalsForProvider is IntervalsFor for a provider that is already loaded.
func IntervalsForProvider(p *domain.Provider, weekday time.Weekday) []domain.Interval {
	entry := p.HoursFor(weekday)
	if !entry.IsOpen || len(entry.Slots) == 0 {
		return []domain.Interval{}
	}

	out := make([]domain.Interval, len(entry.Slots))
	copy(out, entry.Slots)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
