package middleware

import (
	"net/http"
	"strings"

	"appointly/internal/domain"
	"appointly/internal/logger"
	"appointly/internal/pkg/jwt"
	"appointly/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID     = "user_id"
	ctxRole       = "role"
	ctxProviderID = "provider_id"
)

// JWTAuth validates the bearer token and stores the caller in the gin context.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			logger.FromContext(c.Request.Context()).Debug().Err(err).Msg("token rejected")
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}
		if claims.UserID <= 0 || !domain.UserRole(claims.Role).Valid() {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token carries no valid subject")
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxProviderID, claims.ProviderID)

		c.Next()
	}
}

// ActorFrom returns the caller stored by JWTAuth.
func ActorFrom(c *gin.Context) domain.Actor {
	return domain.Actor{
		UserID:     c.GetInt64(ctxUserID),
		Role:       domain.UserRole(c.GetString(ctxRole)),
		ProviderID: c.GetInt64(ctxProviderID),
	}
}
