package booking

type CreateBookingRequest struct {
	ProviderID int64  `json:"provider_id" validate:"required,gt=0"`
	ServiceID  int64  `json:"service_id" validate:"required,gt=0"`
	Date       string `json:"date" validate:"required,ymd"`
	StartTime  string `json:"start_time" validate:"required,hhmm"`
	Notes      string `json:"notes" validate:"max=1000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	Reason string `json:"reason" validate:"max=500"`
}

type ListQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (q ListQuery) normalize() (limit, offset int) {
	limit, offset = q.Limit, q.Offset
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
