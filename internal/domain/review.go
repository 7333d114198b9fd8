package domain

import "time"

type Review struct {
	ID         int64     `json:"id"`
	BookingID  int64     `json:"booking_id"`
	CustomerID int64     `json:"customer_id"`
	ProviderID int64     `json:"provider_id"`
	ServiceID  int64     `json:"service_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProviderRating is the derived aggregate stored on the provider.
type ProviderRating struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// AggregateRatings recomputes the mean and count. With no ratings the count
// drops to zero and the previous mean is kept as is.
func AggregateRatings(ratings []int, previous ProviderRating) ProviderRating {
	if len(ratings) == 0 {
		return ProviderRating{Rating: previous.Rating, ReviewCount: 0}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return ProviderRating{
		Rating:      float64(sum) / float64(len(ratings)),
		ReviewCount: len(ratings),
	}
}
