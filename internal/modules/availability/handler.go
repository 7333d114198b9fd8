package availability

import (
	"net/http"
	"strconv"

	"appointly/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/providers/:id/availability", h.GetAvailability)
}

type availabilityQuery struct {
	ServiceID int64  `form:"service_id" binding:"required,gt=0"`
	Date      string `form:"date" binding:"required"`
}

// GetAvailability returns the free slots for a provider's service on a day.
// GET /providers/:id/availability?service_id=3&date=2026-03-02
func (h *Handler) GetAvailability(c *gin.Context) {
	providerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || providerID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid provider ID")
		return
	}

	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "service_id and date are required")
		return
	}

	slots, err := h.service.GetAvailability(c.Request.Context(), providerID, q.ServiceID, q.Date)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"provider_id": providerID,
		"service_id":  q.ServiceID,
		"date":        q.Date,
		"slots":       slots,
	})
}
