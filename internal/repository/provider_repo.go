package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"appointly/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

type providerModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Rating      float64   `gorm:"column:rating;not null;default:0"`
	ReviewCount int       `gorm:"column:review_count;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (providerModel) TableName() string { return "providers" }

type workingHoursModel struct {
	ID         int64                                `gorm:"column:id;primaryKey"`
	ProviderID int64                                `gorm:"column:provider_id;not null;uniqueIndex:idx_working_hours_provider_weekday"`
	Weekday    int                                  `gorm:"column:weekday;not null;uniqueIndex:idx_working_hours_provider_weekday"`
	IsOpen     bool                                 `gorm:"column:is_open;not null"`
	Slots      datatypes.JSONSlice[domain.Interval] `gorm:"column:slots"`
}

func (workingHoursModel) TableName() string { return "provider_working_hours" }

type serviceModel struct {
	ID              int64     `gorm:"column:id;primaryKey"`
	ProviderID      int64     `gorm:"column:provider_id;not null;index"`
	Name            string    `gorm:"column:name;not null"`
	DurationMinutes int       `gorm:"column:duration_minutes;not null"`
	Price           float64   `gorm:"column:price;not null"`
	Currency        string    `gorm:"column:currency;not null;default:'EUR'"`
	Available       bool      `gorm:"column:available;not null"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (serviceModel) TableName() string { return "services" }

func toDomainProvider(m providerModel, hours []workingHoursModel) *domain.Provider {
	p := &domain.Provider{
		ID:           m.ID,
		Name:         m.Name,
		Rating:       m.Rating,
		ReviewCount:  m.ReviewCount,
		WorkingHours: make([]domain.WorkingHoursEntry, 0, len(hours)),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	for _, h := range hours {
		p.WorkingHours = append(p.WorkingHours, domain.WorkingHoursEntry{
			Weekday: h.Weekday,
			IsOpen:  h.IsOpen,
			Slots:   []domain.Interval(h.Slots),
		})
	}
	return p
}

func toDomainService(m serviceModel) *domain.Service {
	return &domain.Service{
		ID:              m.ID,
		ProviderID:      m.ProviderID,
		Name:            m.Name,
		DurationMinutes: m.DurationMinutes,
		Price:           m.Price,
		Currency:        m.Currency,
		Available:       m.Available,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toServiceModel(s *domain.Service) serviceModel {
	return serviceModel{
		ID:              s.ID,
		ProviderID:      s.ProviderID,
		Name:            s.Name,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
		Currency:        s.Currency,
		Available:       s.Available,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (r *ProviderRepository) GetProvider(ctx context.Context, id int64) (*domain.Provider, error) {
	var m providerModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: provider %d", domain.ErrNotFound, id)
		}
		return nil, err
	}

	var hours []workingHoursModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ?", id).
		Order("weekday ASC").
		Find(&hours).Error; err != nil {
		return nil, err
	}
	return toDomainProvider(m, hours), nil
}

func (r *ProviderRepository) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	var m serviceModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: service %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return toDomainService(m), nil
}

func (r *ProviderRepository) ListServices(ctx context.Context, providerID int64) ([]domain.Service, error) {
	var rows []serviceModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Service, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainService(m))
	}
	return out, nil
}

// CreateProvider stores the provider with its weekly schedule. Every entry is
// validated first; nothing is written if one of them is malformed.
func (r *ProviderRepository) CreateProvider(ctx context.Context, p *domain.Provider) error {
	for _, e := range p.WorkingHours {
		if err := e.Validate(); err != nil {
			return err
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := providerModel{
			ID:          p.ID,
			Name:        p.Name,
			Rating:      p.Rating,
			ReviewCount: p.ReviewCount,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if err := replaceWorkingHours(tx, m.ID, p.WorkingHours); err != nil {
			return err
		}
		p.ID = m.ID
		p.CreatedAt = m.CreatedAt
		p.UpdatedAt = m.UpdatedAt
		return nil
	})
}

func replaceWorkingHours(tx *gorm.DB, providerID int64, entries []domain.WorkingHoursEntry) error {
	if err := tx.Where("provider_id = ?", providerID).Delete(&workingHoursModel{}).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	rows := make([]workingHoursModel, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, workingHoursModel{
			ProviderID: providerID,
			Weekday:    e.Weekday,
			IsOpen:     e.IsOpen,
			Slots:      datatypes.JSONSlice[domain.Interval](e.Slots),
		})
	}
	return tx.Create(&rows).Error
}

func (r *ProviderRepository) CreateService(ctx context.Context, s *domain.Service) error {
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
	}
	if s.Currency == "" {
		s.Currency = "EUR"
	}
	m := toServiceModel(s)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	*s = *toDomainService(m)
	return nil
}

// UpsertProvider inserts the provider under its catalog ID or renames it, and
// replaces its weekly schedule. Rating fields are never touched here.
// Reports whether a new row was created.
func (r *ProviderRepository) UpsertProvider(ctx context.Context, p *domain.Provider) (bool, error) {
	if p.ID <= 0 {
		return false, fmt.Errorf("%w: provider id is required", domain.ErrValidation)
	}
	for _, e := range p.WorkingHours {
		if err := e.Validate(); err != nil {
			return false, err
		}
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing providerModel
		err := tx.First(&existing, p.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			if err := tx.Create(&providerModel{ID: p.ID, Name: p.Name}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&existing).Updates(map[string]any{
				"name":       p.Name,
				"updated_at": time.Now().UTC(),
			}).Error; err != nil {
				return err
			}
		}
		return replaceWorkingHours(tx, p.ID, p.WorkingHours)
	})
	return created, err
}

// UpsertService inserts or overwrites a service under its catalog ID. The
// owning provider must exist and cannot change.
func (r *ProviderRepository) UpsertService(ctx context.Context, s *domain.Service) (bool, error) {
	if s.ID <= 0 {
		return false, fmt.Errorf("%w: service id is required", domain.ErrValidation)
	}
	if s.DurationMinutes <= 0 {
		return false, fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
	}
	if s.Currency == "" {
		s.Currency = "EUR"
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner providerModel
		if err := tx.Select("id").First(&owner, s.ProviderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: provider %d", domain.ErrNotFound, s.ProviderID)
			}
			return err
		}

		var existing serviceModel
		err := tx.First(&existing, s.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			m := toServiceModel(s)
			return tx.Create(&m).Error
		case err != nil:
			return err
		case existing.ProviderID != s.ProviderID:
			return fmt.Errorf("%w: service %d belongs to provider %d", domain.ErrValidation, s.ID, existing.ProviderID)
		}
		return tx.Model(&existing).Updates(map[string]any{
			"name":             s.Name,
			"duration_minutes": s.DurationMinutes,
			"price":            s.Price,
			"currency":         s.Currency,
			"available":        s.Available,
			"updated_at":       time.Now().UTC(),
		}).Error
	})
	return created, err
}
