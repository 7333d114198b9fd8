package booking

import (
	"context"
	"time"

	"appointly/internal/domain"
)

// BookingRepository is the booking ledger as seen by the service.
type BookingRepository interface {
	BookingsFor(ctx context.Context, providerID int64, date string, includeHistory bool) ([]domain.Booking, error)
	Insert(ctx context.Context, b *domain.Booking) error
	UpdateStatus(ctx context.Context, id int64, next domain.BookingStatus, reason string, now time.Time) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]domain.Booking, error)
}

// CatalogReader is the read-only provider/service lookup.
type CatalogReader interface {
	GetProvider(ctx context.Context, id int64) (*domain.Provider, error)
	GetService(ctx context.Context, id int64) (*domain.Service, error)
}

// CacheInvalidator drops cached availability for a provider's day.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, providerID int64, date string) error
}

// EventPublisher fans booking changes out to live subscribers.
type EventPublisher interface {
	Publish(event domain.AvailabilityEvent)
}
