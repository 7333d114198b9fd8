package review

import (
	"net/http"
	"strconv"

	"appointly/internal/middleware"
	"appointly/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup, createGuards ...gin.HandlerFunc) {
	// Public routes (no auth required)
	if public != nil {
		public.GET("/providers/:id/reviews", h.ListByProvider)
	}

	// Protected routes (auth required)
	if protected != nil {
		create := append(append([]gin.HandlerFunc{}, createGuards...), h.Create)
		protected.POST("/reviews", create...)
		protected.PATCH("/reviews/:id", h.Update)
		protected.DELETE("/reviews/:id", h.Delete)
	}
}

// Create stores a review for a completed booking.
// @Summary		Review a completed booking
// @Tags		Reviews
// @Security	BearerAuth
// @Param		request	body	CreateReviewRequest	true	"booking_id, provider_id, service_id, rating, comment"
// @Success		201	{object}	map[string]interface{}	"Review stored, provider rating recomputed"
// @Failure		400	{object}	map[string]interface{}	"Validation error"
// @Failure		409	{object}	map[string]interface{}	"Booking already reviewed"
// @Failure		422	{object}	map[string]interface{}	"Booking not completed"
// @Router		/reviews [POST]
func (h *Handler) Create(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	rv, agg, err := h.svc.Create(c.Request.Context(), middleware.ActorFrom(c).UserID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"review": rv, "provider_rating": agg})
}

// ListByProvider returns a provider's reviews, newest first.
// @Summary		List provider reviews
// @Tags		Reviews
// @Param		id		path	int	true	"Provider ID"
// @Param		limit	query	int	false	"Page size (default 20, max 100)"
// @Param		offset	query	int	false	"Offset"
// @Router		/providers/{id}/reviews [GET]
func (h *Handler) ListByProvider(c *gin.Context) {
	providerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || providerID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid provider ID")
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid pagination parameters")
		return
	}

	list, err := h.svc.ListByProvider(c.Request.Context(), providerID, q)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reviews": list})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	rv, agg, err := h.svc.Update(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"review": rv, "provider_rating": agg})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}

	agg, err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"provider_rating": agg})
}

func reviewID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID")
		return 0, false
	}
	return id, true
}
