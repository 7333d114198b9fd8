package catalog

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

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/providers/:id", h.GetProviderByID)
	r.GET("/providers/:id/hours", h.GetOpeningHours)
}

// GetProviderByID handles GET /api/v1/providers/:id
func (h *Handler) GetProviderByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid provider ID")
		return
	}

	profile, err := h.service.GetProvider(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"provider": profile})
}

// GetOpeningHours handles GET /api/v1/providers/:id/hours?date=yyyy-MM-dd
func (h *Handler) GetOpeningHours(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid provider ID")
		return
	}

	hours, err := h.service.GetOpeningHours(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, hours)
}
