package availability

import (
	"context"

	"appointly/internal/domain"
)

// BookingLedger is the read side of the booking store the resolver needs.
type BookingLedger interface {
	BookingsFor(ctx context.Context, providerID int64, date string, includeHistory bool) ([]domain.Booking, error)
}

// CatalogReader is the read-only provider/service lookup.
type CatalogReader interface {
	GetProvider(ctx context.Context, id int64) (*domain.Provider, error)
	GetService(ctx context.Context, id int64) (*domain.Service, error)
}

// Cache holds computed availability for display. It is never consulted on
// the booking commit path. Set drops writes whose version is no longer
// current, so a result computed before a booking commit is not cached after it.
type Cache interface {
	Get(ctx context.Context, providerID, serviceID int64, date string) ([]domain.Slot, bool, error)
	Version(ctx context.Context, providerID int64) (int64, error)
	Set(ctx context.Context, providerID, serviceID int64, date string, version int64, slots []domain.Slot) error
}
