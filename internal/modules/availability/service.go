package availability

import (
	"context"
	"fmt"

	"appointly/internal/domain"
	"appointly/internal/logger"
)

type Service struct {
	catalog  CatalogReader
	resolver *Resolver
	cache    Cache
}

// NewService wires the availability query. cache may be nil.
func NewService(catalog CatalogReader, resolver *Resolver, cache Cache) *Service {
	return &Service{catalog: catalog, resolver: resolver, cache: cache}
}

// GetAvailability returns the free slots of a provider's service on date.
// Results may be served from cache and can be slightly stale; the booking
// path always recomputes from the ledger.
func (s *Service) GetAvailability(ctx context.Context, providerID, serviceID int64, date string) ([]domain.Slot, error) {
	if providerID <= 0 || serviceID <= 0 {
		return nil, fmt.Errorf("%w: provider_id and service_id are required", domain.ErrValidation)
	}
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}

	provider, svc, err := LoadProviderService(ctx, s.catalog, providerID, serviceID)
	if err != nil {
		return nil, err
	}

	var (
		version   int64
		cacheable bool
	)
	if s.cache != nil {
		slots, ok, err := s.cache.Get(ctx, providerID, serviceID, date)
		switch {
		case err != nil:
			logger.FromContext(ctx).Warn().Err(err).
				Int64("provider_id", providerID).Str("date", date).
				Msg("availability cache read failed")
		case ok:
			return slots, nil
		default:
			version, err = s.cache.Version(ctx, providerID)
			if err != nil {
				logger.FromContext(ctx).Warn().Err(err).
					Int64("provider_id", providerID).
					Msg("availability cache version read failed")
			}
			cacheable = err == nil
		}
	}

	slots, err := s.resolver.AvailableSlots(ctx, provider, svc, date)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, providerID, serviceID, date, version, slots); err != nil {
			logger.FromContext(ctx).Warn().Err(err).
				Int64("provider_id", providerID).Str("date", date).
				Msg("availability cache write failed")
		}
	}
	return slots, nil
}

// LoadProviderService looks up both records and checks that the service
// belongs to the provider.
func LoadProviderService(ctx context.Context, catalog CatalogReader, providerID, serviceID int64) (*domain.Provider, *domain.Service, error) {
	provider, err := catalog.GetProvider(ctx, providerID)
	if err != nil {
		return nil, nil, err
	}
	svc, err := catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}
	if svc.ProviderID != provider.ID {
		return nil, nil, fmt.Errorf("%w: service %d does not belong to provider %d", domain.ErrValidation, serviceID, providerID)
	}
	return provider, svc, nil
}
