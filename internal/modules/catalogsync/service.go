package catalogsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"appointly/internal/domain"
	"appointly/internal/logger"
)

type SyncResult string

const (
	ResultCreated SyncResult = "created"
	ResultUpdated SyncResult = "updated"
)

// CatalogWriter stores providers and services under the IDs the catalog owns.
type CatalogWriter interface {
	UpsertProvider(ctx context.Context, p *domain.Provider) (bool, error)
	UpsertService(ctx context.Context, s *domain.Service) (bool, error)
}

type ProviderCacheInvalidator interface {
	InvalidateProvider(ctx context.Context, providerID int64) error
}

type EventPublisher interface {
	Publish(event domain.AvailabilityEvent)
}

// Service applies catalog pushes: provider schedules and service definitions.
// Anything cached for the provider is dropped afterwards.
type Service struct {
	catalog CatalogWriter
	cache   ProviderCacheInvalidator
	events  EventPublisher
}

func NewService(catalog CatalogWriter) *Service {
	return &Service{catalog: catalog}
}

func (s *Service) WithCache(cache ProviderCacheInvalidator) *Service {
	s.cache = cache
	return s
}

func (s *Service) WithEvents(events EventPublisher) *Service {
	s.events = events
	return s
}

func (s *Service) SyncProvider(ctx context.Context, req SyncProviderRequest) (SyncResult, error) {
	seen := make(map[int]bool, len(req.WorkingHours))
	for _, e := range req.WorkingHours {
		if seen[e.Weekday] {
			return "", fmt.Errorf("%w: weekday %d listed twice", domain.ErrValidation, e.Weekday)
		}
		seen[e.Weekday] = true
	}

	p := &domain.Provider{
		ID:           req.ID,
		Name:         strings.TrimSpace(req.Name),
		WorkingHours: req.WorkingHours,
	}
	created, err := s.catalog.UpsertProvider(ctx, p)
	if err != nil {
		return "", err
	}

	s.afterSync(ctx, req.ID)
	return result(created), nil
}

func (s *Service) SyncService(ctx context.Context, req SyncServiceRequest) (SyncResult, error) {
	available := true
	if req.Available != nil {
		available = *req.Available
	}

	svc := &domain.Service{
		ID:              req.ID,
		ProviderID:      req.ProviderID,
		Name:            strings.TrimSpace(req.Name),
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		Currency:        strings.ToUpper(req.Currency),
		Available:       available,
	}
	created, err := s.catalog.UpsertService(ctx, svc)
	if err != nil {
		return "", err
	}

	s.afterSync(ctx, req.ProviderID)
	return result(created), nil
}

func (s *Service) afterSync(ctx context.Context, providerID int64) {
	if s.cache != nil {
		if err := s.cache.InvalidateProvider(ctx, providerID); err != nil {
			logger.FromContext(ctx).Warn().Err(err).
				Int64("provider_id", providerID).
				Msg("availability cache invalidation failed")
		}
	}
	if s.events != nil {
		s.events.Publish(domain.AvailabilityEvent{
			Type:       domain.EventScheduleChanged,
			ProviderID: providerID,
			At:         time.Now().UTC(),
		})
	}
}

func result(created bool) SyncResult {
	if created {
		return ResultCreated
	}
	return ResultUpdated
}
