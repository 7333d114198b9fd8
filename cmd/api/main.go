package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"appointly/internal/cache"
	"appointly/internal/config"
	"appointly/internal/database"
	"appointly/internal/logger"
	"appointly/internal/modules/feed"
	jwtsvc "appointly/internal/pkg/jwt"
	"appointly/internal/repository"
	"appointly/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("appointly-api", "dev", "info")
		logger.Get().Fatal().Err(err).Msg("config")
	}

	logger.Init("appointly-api", cfg.AppEnv, cfg.LogLevel)
	log := logger.Get()

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("auto migrate")
	}

	var availabilityCache *cache.RedisAvailability
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, availability cache disabled")
		} else {
			defer client.Close()
			availabilityCache = cache.NewRedisAvailability(client, cfg.AvailabilityCacheTTL)
		}
	}

	hub := feed.NewHub()
	defer hub.Close()

	router := server.NewRouter(server.Options{
		DB:                     db,
		JWT:                    jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL),
		Cache:                  availabilityCache,
		Hub:                    hub,
		SlotGranularityMinutes: cfg.SlotGranularityMinutes,
		LockTimeout:            cfg.BookingLockTimeout,
		RateLimitPerMin:        cfg.RateLimitPerMin,
		CORSOrigins:            cfg.CORSOrigins,
		InternalToken:          cfg.InternalSyncToken,
		InternalAllowedIPs:     cfg.InternalAllowedIPs,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http serve")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down http server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
