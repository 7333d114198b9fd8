package response

import (
	"errors"
	"net/http"

	"appointly/internal/domain"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError maps the booking core's error taxonomy onto HTTP responses.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrSlotUnavailable):
		Error(c, http.StatusConflict, "SLOT_UNAVAILABLE", "Slot is no longer available, refresh availability and retry")
	case errors.Is(err, domain.ErrInvalidTransition):
		Error(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, domain.ErrDuplicateReview):
		Error(c, http.StatusConflict, "DUPLICATE_REVIEW", "Booking already has a review")
	case errors.Is(err, domain.ErrServiceUnavailable):
		Error(c, http.StatusUnprocessableEntity, "SERVICE_UNAVAILABLE", "Service is not available for booking")
	case errors.Is(err, domain.ErrBookingNotCompleted):
		Error(c, http.StatusUnprocessableEntity, "BOOKING_NOT_COMPLETED", "Only completed bookings can be reviewed")
	case errors.Is(err, domain.ErrForbidden):
		Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
	case errors.Is(err, domain.ErrBusy):
		c.Header("Retry-After", "1")
		Error(c, http.StatusServiceUnavailable, "BUSY", "Too many concurrent requests for this slot, retry shortly")
	default:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
