package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"appointly/internal/domain"
	"appointly/internal/logger"
	"appointly/internal/pkg/keylock"
	"appointly/internal/pkg/validator"
)

// Service accepts reviews for completed bookings and keeps each provider's
// rating aggregate current. Mutations for one provider are serialized.
type Service struct {
	reviews  ReviewRepository
	bookings BookingReader
	locks    *keylock.Locker
	now      func() time.Time
}

func NewService(reviews ReviewRepository, bookings BookingReader, locks *keylock.Locker) *Service {
	return &Service{
		reviews:  reviews,
		bookings: bookings,
		locks:    locks,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func reviewKey(providerID int64) string {
	return fmt.Sprintf("review:%d", providerID)
}

func (s *Service) Create(ctx context.Context, customerID int64, req CreateReviewRequest) (*domain.Review, domain.ProviderRating, error) {
	var agg domain.ProviderRating
	if customerID <= 0 {
		return nil, agg, fmt.Errorf("%w: customer is required", domain.ErrValidation)
	}
	if err := validator.Struct(req); err != nil {
		return nil, agg, err
	}

	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, agg, err
	}
	if b.CustomerID != customerID || b.ProviderID != req.ProviderID || b.ServiceID != req.ServiceID {
		return nil, agg, fmt.Errorf("%w: review does not match booking %d", domain.ErrValidation, b.ID)
	}
	if b.Status != domain.BookingCompleted {
		return nil, agg, fmt.Errorf("%w: booking %d is %s", domain.ErrBookingNotCompleted, b.ID, b.Status)
	}

	rv := &domain.Review{
		BookingID:  b.ID,
		CustomerID: customerID,
		ProviderID: b.ProviderID,
		ServiceID:  b.ServiceID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}

	err = s.withProvider(ctx, b.ProviderID, func() error {
		exists, err := s.reviews.ExistsForBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: booking %d", domain.ErrDuplicateReview, b.ID)
		}
		agg, err = s.reviews.Create(ctx, rv)
		return err
	})
	if err != nil {
		return nil, agg, err
	}

	logger.FromContext(ctx).Info().
		Int64("review_id", rv.ID).
		Int64("provider_id", rv.ProviderID).
		Float64("rating", agg.Rating).
		Int("review_count", agg.ReviewCount).
		Msg("review created")
	return rv, agg, nil
}

// Update changes rating and/or comment. Only the author may edit a review.
func (s *Service) Update(ctx context.Context, actor domain.Actor, reviewID int64, req UpdateReviewRequest) (*domain.Review, domain.ProviderRating, error) {
	var agg domain.ProviderRating
	if err := validator.Struct(req); err != nil {
		return nil, agg, err
	}

	rv, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, agg, err
	}
	if rv.CustomerID != actor.UserID {
		return nil, agg, fmt.Errorf("%w: review %d", domain.ErrForbidden, reviewID)
	}

	if req.Rating != nil {
		rv.Rating = *req.Rating
	}
	if req.Comment != nil {
		rv.Comment = *req.Comment
	}
	rv.UpdatedAt = s.now()

	err = s.withProvider(ctx, rv.ProviderID, func() error {
		var err error
		agg, err = s.reviews.Update(ctx, rv)
		return err
	})
	if err != nil {
		return nil, agg, err
	}
	return rv, agg, nil
}

// Delete removes a review. The author and admins may delete.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, reviewID int64) (domain.ProviderRating, error) {
	var agg domain.ProviderRating

	rv, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return agg, err
	}
	if rv.CustomerID != actor.UserID && actor.Role != domain.RoleAdmin {
		return agg, fmt.Errorf("%w: review %d", domain.ErrForbidden, reviewID)
	}

	err = s.withProvider(ctx, rv.ProviderID, func() error {
		var err error
		agg, err = s.reviews.Delete(ctx, rv)
		return err
	})
	if err != nil {
		return agg, err
	}

	logger.FromContext(ctx).Info().
		Int64("review_id", reviewID).
		Int64("provider_id", rv.ProviderID).
		Int("review_count", agg.ReviewCount).
		Msg("review deleted")
	return agg, nil
}

func (s *Service) ListByProvider(ctx context.Context, providerID int64, q ListQuery) ([]domain.Review, error) {
	if providerID <= 0 {
		return nil, fmt.Errorf("%w: provider_id is required", domain.ErrValidation)
	}
	limit, offset := q.normalize()
	return s.reviews.ListByProvider(ctx, providerID, limit, offset)
}

func (s *Service) withProvider(ctx context.Context, providerID int64, fn func() error) error {
	unlock, err := s.locks.Lock(ctx, reviewKey(providerID))
	if err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			return fmt.Errorf("%w: reviews of provider %d", domain.ErrBusy, providerID)
		}
		return err
	}
	defer unlock()
	return fn()
}
