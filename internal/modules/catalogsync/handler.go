package catalogsync

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"appointly/internal/logger"
	"appointly/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(internal *gin.RouterGroup) {
	catalogGroup := internal.Group("/catalog")
	{
		catalogGroup.POST("/providers/sync", h.SyncProvider)
		catalogGroup.POST("/services/sync", h.SyncService)
	}
}

// SyncProvider creates or updates a provider and replaces its weekly hours.
// @Summary		Sync provider from the catalog
// @Tags		Internal - Catalog
// @Security	BearerAuth
// @Param		request	body	SyncProviderRequest	true	"id, name, working_hours"
// @Success		200	{object}	SyncResponse	"Provider updated"
// @Success		201	{object}	SyncResponse	"Provider created"
// @Failure		400	{object}	map[string]interface{}	"Malformed working hours"
// @Router		/internal/catalog/providers/sync [POST]
func (h *Handler) SyncProvider(c *gin.Context) {
	start := time.Now()

	var req SyncProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validationDetails(err, req))
		return
	}

	result, err := h.service.SyncProvider(c.Request.Context(), req)
	if err != nil {
		logSync(c, "provider", req.ID, "error", start)
		response.FromError(c, err)
		return
	}

	logSync(c, "provider", req.ID, string(result), start)
	response.Success(c, statusFor(result), SyncResponse{ID: req.ID, Status: result})
}

// SyncService creates or updates one service of an existing provider.
// @Summary		Sync service from the catalog
// @Tags		Internal - Catalog
// @Security	BearerAuth
// @Param		request	body	SyncServiceRequest	true	"id, provider_id, name, duration_minutes, price, currency, available"
// @Success		200	{object}	SyncResponse	"Service updated"
// @Success		201	{object}	SyncResponse	"Service created"
// @Failure		404	{object}	map[string]interface{}	"Provider not synced yet"
// @Router		/internal/catalog/services/sync [POST]
func (h *Handler) SyncService(c *gin.Context) {
	start := time.Now()

	var req SyncServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validationDetails(err, req))
		return
	}

	result, err := h.service.SyncService(c.Request.Context(), req)
	if err != nil {
		logSync(c, "service", req.ID, "error", start)
		response.FromError(c, err)
		return
	}

	logSync(c, "service", req.ID, string(result), start)
	response.Success(c, statusFor(result), SyncResponse{ID: req.ID, Status: result})
}

func statusFor(result SyncResult) int {
	if result == ResultCreated {
		return http.StatusCreated
	}
	return http.StatusOK
}

func validationDetails(err error, req any) map[string]any {
	fieldErrors := map[string]string{}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		requestType := reflect.TypeOf(req)
		for _, fieldError := range validationErrors {
			fieldName := fieldError.Field()
			if field, ok := requestType.FieldByName(fieldError.StructField()); ok {
				if jsonTag := field.Tag.Get("json"); jsonTag != "" {
					fieldName = strings.Split(jsonTag, ",")[0]
				}
			}
			fieldErrors[fieldName] = validationErrorMessage(fieldError)
		}
	}
	if len(fieldErrors) == 0 {
		return nil
	}
	return map[string]any{
		"field_errors": fieldErrors,
	}
}

func validationErrorMessage(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "is required"
	case "gt", "gte":
		return "is too small"
	case "max", "lte":
		return "is too large"
	default:
		return "is invalid"
	}
}

func logSync(c *gin.Context, kind string, id int64, result string, start time.Time) {
	logger.FromContext(c.Request.Context()).Info().
		Str("kind", kind).
		Int64("id", id).
		Str("result", result).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("catalog sync")
}
