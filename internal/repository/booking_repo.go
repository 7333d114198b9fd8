package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"appointly/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingRepository is the booking ledger. Occupancy is derived from it on
// every read; nothing else stores which slots are taken.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID                 int64      `gorm:"column:id;primaryKey"`
	CustomerID         int64      `gorm:"column:customer_id;not null;index"`
	ProviderID         int64      `gorm:"column:provider_id;not null;index:idx_bookings_provider_date"`
	ServiceID          int64      `gorm:"column:service_id;not null"`
	Date               string     `gorm:"column:date;type:varchar(10);not null;index:idx_bookings_provider_date"`
	StartTime          string     `gorm:"column:start_time;type:varchar(5);not null"`
	EndTime            string     `gorm:"column:end_time;type:varchar(5);not null"`
	Status             string     `gorm:"column:status;type:varchar(20);not null;index"`
	TotalPrice         float64    `gorm:"column:total_price;not null"`
	Currency           string     `gorm:"column:currency;type:varchar(3);not null"`
	Notes              *string    `gorm:"column:notes"`
	CancellationReason *string    `gorm:"column:cancellation_reason"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
}

func (bookingModel) TableName() string { return "bookings" }

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	v := s
	return &v
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toDomainBooking(m bookingModel) (*domain.Booking, error) {
	start, err := domain.ParseTimeOfDay(m.StartTime)
	if err != nil {
		return nil, fmt.Errorf("booking %d: start_time: %w", m.ID, err)
	}
	end, err := domain.ParseTimeOfDay(m.EndTime)
	if err != nil {
		return nil, fmt.Errorf("booking %d: end_time: %w", m.ID, err)
	}

	return &domain.Booking{
		ID:                 m.ID,
		CustomerID:         m.CustomerID,
		ProviderID:         m.ProviderID,
		ServiceID:          m.ServiceID,
		Date:               m.Date,
		StartTime:          start,
		EndTime:            end,
		Status:             domain.BookingStatus(m.Status),
		TotalPrice:         m.TotalPrice,
		Currency:           m.Currency,
		Notes:              derefString(m.Notes),
		CancellationReason: derefString(m.CancellationReason),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		CancelledAt:        m.CancelledAt,
	}, nil
}

func toBookingModel(b *domain.Booking) bookingModel {
	return bookingModel{
		ID:                 b.ID,
		CustomerID:         b.CustomerID,
		ProviderID:         b.ProviderID,
		ServiceID:          b.ServiceID,
		Date:               b.Date,
		StartTime:          b.StartTime.String(),
		EndTime:            b.EndTime.String(),
		Status:             string(b.Status),
		TotalPrice:         b.TotalPrice,
		Currency:           b.Currency,
		Notes:              optionalString(b.Notes),
		CancellationReason: optionalString(b.CancellationReason),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
		CancelledAt:        b.CancelledAt,
	}
}

func toDomainBookings(rows []bookingModel) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		b, err := toDomainBooking(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

func occupyingStatusStrings() []string {
	out := make([]string, 0, len(domain.OccupyingStatuses))
	for _, s := range domain.OccupyingStatuses {
		out = append(out, string(s))
	}
	return out
}

// BookingsFor lists the provider's bookings on date ordered by start time.
// Without includeHistory only occupying bookings are returned.
func (r *BookingRepository) BookingsFor(ctx context.Context, providerID int64, date string, includeHistory bool) ([]domain.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("provider_id = ? AND date = ?", providerID, date)
	if !includeHistory {
		q = q.Where("status IN ?", occupyingStatusStrings())
	}

	var rows []bookingModel
	if err := q.Order("start_time ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainBookings(rows)
}

// Overlaps reports whether an occupying booking of the provider intersects
// window on date. "HH:mm" strings order the same way as the times they hold.
func (r *BookingRepository) Overlaps(ctx context.Context, providerID int64, date string, window domain.Interval) (bool, error) {
	return overlaps(r.db.WithContext(ctx), providerID, date, window)
}

func overlaps(db *gorm.DB, providerID int64, date string, window domain.Interval) (bool, error) {
	var cnt int64
	err := db.Model(&bookingModel{}).
		Where("provider_id = ? AND date = ?", providerID, date).
		Where("status IN ?", occupyingStatusStrings()).
		Where("start_time < ? AND ? < end_time", window.End.String(), window.Start.String()).
		Count(&cnt).Error
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// Insert commits b if its window is still free. The overlap re-check and the
// insert share one transaction. On PostgreSQL a transaction-scoped advisory
// lock on (provider, date) serializes writers across processes as well.
func (r *BookingRepository) Insert(ctx context.Context, b *domain.Booking) error {
	if err := b.Interval().Validate(); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", advisoryKey(b.ProviderID, b.Date)).Error; err != nil {
				return fmt.Errorf("advisory lock: %w", err)
			}
		}

		taken, err := overlaps(tx, b.ProviderID, b.Date, b.Interval())
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s %s-%s", domain.ErrSlotUnavailable, b.Date, b.StartTime, b.EndTime)
		}

		m := toBookingModel(b)
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		b.ID = m.ID
		b.CreatedAt = m.CreatedAt
		b.UpdatedAt = m.UpdatedAt
		return nil
	})
}

// UpdateStatus applies a status transition under a row lock and returns the
// updated booking.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, next domain.BookingStatus, reason string, now time.Time) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m bookingModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
			}
			return err
		}

		b, err := toDomainBooking(m)
		if err != nil {
			return err
		}
		if err := b.Transition(next, reason, now); err != nil {
			return err
		}

		if err := tx.Model(&bookingModel{}).Where("id = ?", id).Updates(map[string]any{
			"status":              string(b.Status),
			"cancellation_reason": optionalString(b.CancellationReason),
			"cancelled_at":        b.CancelledAt,
			"updated_at":          b.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var m bookingModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return toDomainBooking(m)
}

// ListByCustomer returns the customer's bookings, newest day first.
func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]domain.Booking, error) {
	var rows []bookingModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("date DESC, start_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainBookings(rows)
}

func advisoryKey(providerID int64, date string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "booking:%d:%s", providerID, date)
	return int64(h.Sum64())
}
