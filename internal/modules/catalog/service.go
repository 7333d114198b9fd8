package catalog

import (
	"context"
	"fmt"

	"appointly/internal/domain"
	"appointly/internal/modules/schedule"
)

// ProviderRepository is the read side of the provider catalog.
type ProviderRepository interface {
	GetProvider(ctx context.Context, id int64) (*domain.Provider, error)
	ListServices(ctx context.Context, providerID int64) ([]domain.Service, error)
}

type Service struct {
	providers ProviderRepository
	calendar  *schedule.Calendar
}

func NewService(providers ProviderRepository) *Service {
	return &Service{providers: providers, calendar: schedule.NewCalendar(providers)}
}

// ProviderProfile is the public view of a provider with its services.
type ProviderProfile struct {
	*domain.Provider
	Services []domain.Service `json:"services"`
}

func (s *Service) GetProvider(ctx context.Context, id int64) (*ProviderProfile, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: provider id", domain.ErrValidation)
	}
	p, err := s.providers.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	services, err := s.providers.ListServices(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProviderProfile{Provider: p, Services: services}, nil
}

// OpeningHours is the provider's working calendar for one date.
type OpeningHours struct {
	Date      string            `json:"date"`
	Weekday   string            `json:"weekday"`
	IsOpen    bool              `json:"is_open"`
	Intervals []domain.Interval `json:"intervals"`
}

func (s *Service) GetOpeningHours(ctx context.Context, id int64, date string) (*OpeningHours, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: provider id", domain.ErrValidation)
	}
	day, err := domain.ParseDate(date)
	if err != nil {
		return nil, err
	}
	intervals, err := s.calendar.IntervalsFor(ctx, id, day.Weekday())
	if err != nil {
		return nil, err
	}
	return &OpeningHours{
		Date:      date,
		Weekday:   day.Weekday().String(),
		IsOpen:    len(intervals) > 0,
		Intervals: intervals,
	}, nil
}
