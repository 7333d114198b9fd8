package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"appointly/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewRepository stores reviews and keeps the provider's rating aggregate
// in step with them. Every mutation recomputes the aggregate in the same
// transaction.
type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

type reviewModel struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	BookingID  int64     `gorm:"column:booking_id;not null;uniqueIndex:idx_reviews_booking"`
	CustomerID int64     `gorm:"column:customer_id;not null"`
	ProviderID int64     `gorm:"column:provider_id;not null;index"`
	ServiceID  int64     `gorm:"column:service_id;not null"`
	Rating     int       `gorm:"column:rating;not null"`
	Comment    *string   `gorm:"column:comment"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (reviewModel) TableName() string { return "reviews" }

func toDomainReview(m reviewModel) *domain.Review {
	return &domain.Review{
		ID:         m.ID,
		BookingID:  m.BookingID,
		CustomerID: m.CustomerID,
		ProviderID: m.ProviderID,
		ServiceID:  m.ServiceID,
		Rating:     m.Rating,
		Comment:    derefString(m.Comment),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toReviewModel(r *domain.Review) reviewModel {
	return reviewModel{
		ID:         r.ID,
		BookingID:  r.BookingID,
		CustomerID: r.CustomerID,
		ProviderID: r.ProviderID,
		ServiceID:  r.ServiceID,
		Rating:     r.Rating,
		Comment:    optionalString(r.Comment),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Create stores rv and returns the provider's recomputed rating.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (domain.ProviderRating, error) {
	var agg domain.ProviderRating
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := toReviewModel(rv)
		if err := tx.Create(&m).Error; err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: booking %d", domain.ErrDuplicateReview, rv.BookingID)
			}
			return err
		}
		*rv = *toDomainReview(m)

		var err error
		agg, err = recomputeRating(tx, rv.ProviderID)
		return err
	})
	return agg, err
}

// Update changes rating and comment of an existing review.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) (domain.ProviderRating, error) {
	var agg domain.ProviderRating
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&reviewModel{}).Where("id = ?", rv.ID).Updates(map[string]any{
			"rating":     rv.Rating,
			"comment":    optionalString(rv.Comment),
			"updated_at": rv.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: review %d", domain.ErrNotFound, rv.ID)
		}

		var err error
		agg, err = recomputeRating(tx, rv.ProviderID)
		return err
	})
	return agg, err
}

func (r *ReviewRepository) Delete(ctx context.Context, rv *domain.Review) (domain.ProviderRating, error) {
	var agg domain.ProviderRating
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", rv.ID).Delete(&reviewModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: review %d", domain.ErrNotFound, rv.ID)
		}

		var err error
		agg, err = recomputeRating(tx, rv.ProviderID)
		return err
	})
	return agg, err
}

func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	var m reviewModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: review %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return toDomainReview(m), nil
}

func (r *ReviewRepository) ExistsForBooking(ctx context.Context, bookingID int64) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&reviewModel{}).
		Where("booking_id = ?", bookingID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *ReviewRepository) ListByProvider(ctx context.Context, providerID int64, limit, offset int) ([]domain.Review, error) {
	var rows []reviewModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainReview(m))
	}
	return out, nil
}

// recomputeRating derives the aggregate from the full review set and stores
// it on the provider row. The row is locked for the rest of the transaction.
func recomputeRating(tx *gorm.DB, providerID int64) (domain.ProviderRating, error) {
	var p providerModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, providerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ProviderRating{}, fmt.Errorf("%w: provider %d", domain.ErrNotFound, providerID)
		}
		return domain.ProviderRating{}, err
	}

	var ratings []int
	if err := tx.Model(&reviewModel{}).
		Where("provider_id = ?", providerID).
		Pluck("rating", &ratings).Error; err != nil {
		return domain.ProviderRating{}, err
	}

	agg := domain.AggregateRatings(ratings, domain.ProviderRating{Rating: p.Rating, ReviewCount: p.ReviewCount})
	if err := tx.Model(&providerModel{}).Where("id = ?", providerID).Updates(map[string]any{
		"rating":       agg.Rating,
		"review_count": agg.ReviewCount,
	}).Error; err != nil {
		return domain.ProviderRating{}, err
	}
	return agg, nil
}

func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}
