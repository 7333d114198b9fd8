package review

type CreateReviewRequest struct {
	BookingID  int64  `json:"booking_id" validate:"required,gt=0"`
	ProviderID int64  `json:"provider_id" validate:"required,gt=0"`
	ServiceID  int64  `json:"service_id" validate:"required,gt=0"`
	Rating     int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment    string `json:"comment,omitempty" validate:"max=2000"`
}

// UpdateReviewRequest changes only the fields that are set.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type ListQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func (q ListQuery) normalize() (limit, offset int) {
	limit, offset = q.Limit, q.Offset
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
