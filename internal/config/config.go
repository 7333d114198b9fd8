package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr         = ":8080"
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultJWTTTL           = "24h"
	defaultGranularity      = "30"
	defaultLockTimeout      = "5s"
	defaultRateLimitPerMin  = "60"
	defaultCacheTTL         = "30s"
	defaultShutdownTimeout  = "10s"
	defaultLogLevel         = "info"
	defaultDatabaseURLLocal = "file:appointly.db?_pragma=busy_timeout(5000)"
)

type Config struct {
	AppEnv   string `validate:"required"`
	HTTPAddr string `validate:"required"`

	DatabaseURL string `validate:"required"`
	RedisAddr   string `validate:"omitempty,hostname_port"`

	JWTSecret string        `validate:"required"`
	JWTTTL    time.Duration `validate:"gt=0"`

	SlotGranularityMinutes int           `validate:"gte=5,lte=240"`
	BookingLockTimeout     time.Duration `validate:"gt=0"`
	RateLimitPerMin        int           `validate:"gte=1"`
	AvailabilityCacheTTL   time.Duration `validate:"gt=0"`
	ShutdownTimeout        time.Duration `validate:"gt=0"`

	CORSOrigins []string
	LogLevel    string `validate:"oneof=trace debug info warn error"`

	// Catalog sync; the /internal routes are not mounted without a token.
	InternalSyncToken  string
	InternalAllowedIPs []string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" && !IsProdLike(cfg.AppEnv) {
		cfg.DatabaseURL = defaultDatabaseURLLocal
	}
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel)))

	cfg.CORSOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	cfg.InternalSyncToken = strings.TrimSpace(os.Getenv("INTERNAL_SYNC_TOKEN"))
	cfg.InternalAllowedIPs = splitList(os.Getenv("INTERNAL_ALLOWED_IPS"))

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.BookingLockTimeout, err = parseDurationEnv("BOOKING_LOCK_TIMEOUT", defaultLockTimeout); err != nil {
		return nil, err
	}
	if cfg.AvailabilityCacheTTL, err = parseDurationEnv("AVAILABILITY_CACHE_TTL", defaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.SlotGranularityMinutes, err = parseIntEnv("SLOT_GRANULARITY_MINUTES", defaultGranularity); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMin, err = parseIntEnv("RATE_LIMIT_PER_MIN", defaultRateLimitPerMin); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}

	if IsProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}
	return nil
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
