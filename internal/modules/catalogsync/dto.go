package catalogsync

import "appointly/internal/domain"

type SyncProviderRequest struct {
	ID           int64                      `json:"id" binding:"required,gt=0"`
	Name         string                     `json:"name" binding:"required,max=200"`
	WorkingHours []domain.WorkingHoursEntry `json:"working_hours" binding:"max=7"`
}

type SyncServiceRequest struct {
	ID              int64   `json:"id" binding:"required,gt=0"`
	ProviderID      int64   `json:"provider_id" binding:"required,gt=0"`
	Name            string  `json:"name" binding:"required,max=200"`
	DurationMinutes int     `json:"duration_minutes" binding:"required,gt=0,lte=1440"`
	Price           float64 `json:"price" binding:"gte=0"`
	Currency        string  `json:"currency" binding:"omitempty,len=3"`
	Available       *bool   `json:"available"`
}

type SyncResponse struct {
	ID     int64      `json:"id"`
	Status SyncResult `json:"status"`
}
