package schedule

import (
	"fmt"

	"appointly/internal/domain"
)

// DefaultGranularityMinutes is the step between candidate start times.
const DefaultGranularityMinutes = 30

// Generate discretizes each open interval into fixed-size slots [t, t+g).
// A trailing remainder shorter than g is dropped and intervals are never
// bridged. Output keeps interval order, then chronological order.
func Generate(intervals []domain.Interval, granularityMinutes int) ([]domain.Slot, error) {
	if granularityMinutes <= 0 {
		return nil, fmt.Errorf("%w: granularity must be positive, got %d", domain.ErrValidation, granularityMinutes)
	}

	slots := make([]domain.Slot, 0)
	for _, iv := range intervals {
		if err := iv.Validate(); err != nil {
			return nil, err
		}
		for t := iv.Start; t.Add(granularityMinutes) <= iv.End; t = t.Add(granularityMinutes) {
			slots = append(slots, domain.Slot{Start: t, End: t.Add(granularityMinutes)})
		}
	}
	return slots, nil
}
