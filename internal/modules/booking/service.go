package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"appointly/internal/domain"
	"appointly/internal/logger"
	"appointly/internal/modules/availability"
	"appointly/internal/pkg/keylock"
	"appointly/internal/pkg/validator"
)

type Service struct {
	bookings BookingRepository
	catalog  CatalogReader
	resolver *availability.Resolver
	locks    *keylock.Locker
	cache    CacheInvalidator
	events   EventPublisher
	now      func() time.Time
}

func NewService(bookings BookingRepository, catalog CatalogReader, resolver *availability.Resolver, locks *keylock.Locker) *Service {
	return &Service{
		bookings: bookings,
		catalog:  catalog,
		resolver: resolver,
		locks:    locks,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithCache makes the service drop cached availability after every commit.
func (s *Service) WithCache(c CacheInvalidator) *Service {
	s.cache = c
	return s
}

// WithEvents makes the service publish booking changes.
func (s *Service) WithEvents(p EventPublisher) *Service {
	s.events = p
	return s
}

func bookingKey(providerID int64, date string) string {
	return fmt.Sprintf("booking:%d:%s", providerID, date)
}

// RequestBooking books the slot starting at req.StartTime for the customer.
// The availability check and the insert run under the (provider, date) lock,
// so two requests for overlapping windows can never both succeed.
func (s *Service) RequestBooking(ctx context.Context, customerID int64, req CreateBookingRequest) (*domain.Booking, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("%w: customer is required", domain.ErrValidation)
	}
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	start, err := domain.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, err
	}

	provider, svc, err := availability.LoadProviderService(ctx, s.catalog, req.ProviderID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.Available {
		return nil, fmt.Errorf("%w: service %d", domain.ErrServiceUnavailable, svc.ID)
	}
	if svc.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: service %d has non-positive duration", domain.ErrValidation, svc.ID)
	}

	b := &domain.Booking{
		CustomerID: customerID,
		ProviderID: provider.ID,
		ServiceID:  svc.ID,
		Date:       req.Date,
		StartTime:  start,
		EndTime:    start.Add(svc.DurationMinutes),
		Status:     domain.BookingPending,
		TotalPrice: svc.Price,
		Currency:   svc.Currency,
		Notes:      req.Notes,
	}

	err = s.withKey(ctx, bookingKey(provider.ID, req.Date), func() error {
		slots, err := s.resolver.AvailableSlots(ctx, provider, svc, req.Date)
		if err != nil {
			return err
		}
		if !availability.Offers(slots, start) {
			return fmt.Errorf("%w: %s %s", domain.ErrSlotUnavailable, req.Date, req.StartTime)
		}
		return s.bookings.Insert(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Int64("booking_id", b.ID).
		Int64("provider_id", b.ProviderID).
		Str("date", b.Date).
		Str("start", b.StartTime.String()).
		Msg("booking created")

	s.afterChange(ctx, b, domain.EventBookingCreated)
	return b, nil
}

// UpdateStatus moves a booking through its lifecycle. Customers may only
// cancel their own bookings; provider staff and admins may apply any legal
// transition.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, bookingID int64, req UpdateStatusRequest) (*domain.Booking, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	next, err := domain.ParseBookingStatus(req.Status)
	if err != nil {
		return nil, err
	}

	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTransition(actor, current, next); err != nil {
		return nil, err
	}

	var updated *domain.Booking
	err = s.withKey(ctx, bookingKey(current.ProviderID, current.Date), func() error {
		var err error
		updated, err = s.bookings.UpdateStatus(ctx, bookingID, next, req.Reason, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Int64("booking_id", updated.ID).
		Str("status", string(updated.Status)).
		Int64("actor_id", actor.UserID).
		Msg("booking status changed")

	s.afterChange(ctx, updated, domain.EventBookingUpdated)
	return updated, nil
}

func (s *Service) GetBooking(ctx context.Context, actor domain.Actor, bookingID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != actor.UserID && !actor.CanManageProvider(b.ProviderID) {
		return nil, fmt.Errorf("%w: booking %d", domain.ErrForbidden, bookingID)
	}
	return b, nil
}

func (s *Service) ListMyBookings(ctx context.Context, customerID int64, q ListQuery) ([]domain.Booking, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("%w: customer is required", domain.ErrValidation)
	}
	limit, offset := q.normalize()
	return s.bookings.ListByCustomer(ctx, customerID, limit, offset)
}

// ProviderAgenda lists every booking of a provider's day, history included,
// for the provider's staff.
func (s *Service) ProviderAgenda(ctx context.Context, actor domain.Actor, providerID int64, date string) ([]domain.Booking, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}
	if !actor.CanManageProvider(providerID) {
		return nil, fmt.Errorf("%w: agenda of provider %d", domain.ErrForbidden, providerID)
	}
	return s.bookings.BookingsFor(ctx, providerID, date, true)
}

func authorizeTransition(actor domain.Actor, b *domain.Booking, next domain.BookingStatus) error {
	if actor.CanManageProvider(b.ProviderID) {
		return nil
	}
	if actor.UserID == b.CustomerID && next == domain.BookingCancelled {
		return nil
	}
	return fmt.Errorf("%w: booking %d cannot be set to %s by this user", domain.ErrForbidden, b.ID, next)
}

func (s *Service) withKey(ctx context.Context, key string, fn func() error) error {
	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			return fmt.Errorf("%w: %s", domain.ErrBusy, key)
		}
		return err
	}
	defer unlock()
	return fn()
}

func (s *Service) afterChange(ctx context.Context, b *domain.Booking, typ domain.EventType) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, b.ProviderID, b.Date); err != nil {
			logger.FromContext(ctx).Warn().Err(err).
				Int64("provider_id", b.ProviderID).Str("date", b.Date).
				Msg("availability cache invalidation failed")
		}
	}
	if s.events != nil {
		s.events.Publish(domain.AvailabilityEvent{
			Type:       typ,
			ProviderID: b.ProviderID,
			Date:       b.Date,
			BookingID:  b.ID,
			Status:     b.Status,
			Start:      b.StartTime,
			End:        b.EndTime,
			At:         s.now(),
		})
	}
}
