package review

import (
	"context"

	"appointly/internal/domain"
)

// ReviewRepository persists reviews. Every mutation returns the provider's
// rating as recomputed in the same transaction.
type ReviewRepository interface {
	Create(ctx context.Context, rv *domain.Review) (domain.ProviderRating, error)
	Update(ctx context.Context, rv *domain.Review) (domain.ProviderRating, error)
	Delete(ctx context.Context, rv *domain.Review) (domain.ProviderRating, error)
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	ExistsForBooking(ctx context.Context, bookingID int64) (bool, error)
	ListByProvider(ctx context.Context, providerID int64, limit, offset int) ([]domain.Review, error)
}

type BookingReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
}
