package server

import (
	"net/http"
	"time"

	"appointly/internal/cache"
	"appointly/internal/domain"
	"appointly/internal/middleware"
	"appointly/internal/modules/availability"
	"appointly/internal/modules/booking"
	"appointly/internal/modules/catalog"
	"appointly/internal/modules/catalogsync"
	"appointly/internal/modules/feed"
	"appointly/internal/modules/review"
	"appointly/internal/pkg/jwt"
	"appointly/internal/pkg/keylock"
	"appointly/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Options struct {
	DB  *gorm.DB
	JWT *jwt.Service

	// Cache is optional; without it availability is always computed.
	Cache *cache.RedisAvailability
	Hub   *feed.Hub

	SlotGranularityMinutes int
	LockTimeout            time.Duration
	RateLimitPerMin        int
	CORSOrigins            []string

	// InternalToken enables the catalog sync routes under /internal.
	InternalToken      string
	InternalAllowedIPs []string
}

// NewRouter wires repositories, services and handlers under /api/v1.
func NewRouter(opts Options) *gin.Engine {
	providerRepo := repository.NewProviderRepository(opts.DB)
	bookingRepo := repository.NewBookingRepository(opts.DB)
	reviewRepo := repository.NewReviewRepository(opts.DB)

	locks := keylock.New(opts.LockTimeout)
	resolver := availability.NewResolver(bookingRepo, opts.SlotGranularityMinutes)

	var availabilityCache availability.Cache
	if opts.Cache != nil {
		availabilityCache = opts.Cache
	}
	availabilityService := availability.NewService(providerRepo, resolver, availabilityCache)

	bookingService := booking.NewService(bookingRepo, providerRepo, resolver, locks)
	if opts.Cache != nil {
		bookingService.WithCache(opts.Cache)
	}
	if opts.Hub != nil {
		bookingService.WithEvents(opts.Hub)
	}

	reviewService := review.NewService(reviewRepo, bookingRepo, locks)
	catalogService := catalog.NewService(providerRepo)

	syncService := catalogsync.NewService(providerRepo)
	if opts.Cache != nil {
		syncService.WithCache(opts.Cache)
	}
	if opts.Hub != nil {
		syncService.WithEvents(opts.Hub)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.ErrorLogger(), middleware.CORS(opts.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := opts.DB.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := middleware.NewRateLimiter(opts.RateLimitPerMin)

	v1 := r.Group("/api/v1")
	{
		// public
		catalog.NewHandler(catalogService).RegisterRoutes(v1)
		availability.NewHandler(availabilityService).RegisterRoutes(v1)
		if opts.Hub != nil {
			feed.NewHandler(opts.Hub).RegisterRoutes(v1)
		}

		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(opts.JWT))
		{
			booking.NewHandler(bookingService).RegisterRoutes(protected,
				middleware.RequireRole(domain.RoleCustomer), limiter.Middleware())
			review.NewHandler(reviewService).RegisterRoutes(v1, protected,
				middleware.RequireRole(domain.RoleCustomer), limiter.Middleware())
		}
	}

	if opts.InternalToken != "" {
		internal := r.Group("/internal")
		internal.Use(middleware.InternalTokenAuth(opts.InternalToken, opts.InternalAllowedIPs))
		catalogsync.NewHandler(syncService).RegisterRoutes(internal)
	}

	return r
}
