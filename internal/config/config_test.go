package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_ENV", "ENV", "HTTP_ADDR", "DATABASE_URL", "REDIS_ADDR", "JWT_SECRET", "JWT_TTL",
	"SLOT_GRANULARITY_MINUTES", "BOOKING_LOCK_TIMEOUT", "RATE_LIMIT_PER_MIN",
	"AVAILABILITY_CACHE_TTL", "SHUTDOWN_TIMEOUT", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS",
	"INTERNAL_SYNC_TOKEN", "INTERNAL_ALLOWED_IPS",
}

func clearEnv(t *testing.T) {
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30, cfg.SlotGranularityMinutes)
	assert.Equal(t, 5*time.Second, cfg.BookingLockTimeout)
	assert.Equal(t, 60, cfg.RateLimitPerMin)
	assert.Equal(t, 30*time.Second, cfg.AvailabilityCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.NotEmpty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLOT_GRANULARITY_MINUTES", "15")
	t.Setenv("BOOKING_LOCK_TIMEOUT", "750ms")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("INTERNAL_SYNC_TOKEN", "sync-secret")
	t.Setenv("INTERNAL_ALLOWED_IPS", "10.0.0.5,")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.SlotGranularityMinutes)
	assert.Equal(t, 750*time.Millisecond, cfg.BookingLockTimeout)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sync-secret", cfg.InternalSyncToken)
	assert.Equal(t, []string{"10.0.0.5"}, cfg.InternalAllowedIPs)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad duration":       {"BOOKING_LOCK_TIMEOUT": "soon"},
		"bad int":            {"SLOT_GRANULARITY_MINUTES": "half-hour"},
		"granularity zero":   {"SLOT_GRANULARITY_MINUTES": "0"},
		"bad log level":      {"LOG_LEVEL": "loud"},
		"prod default jwt":   {"APP_ENV": "production", "DATABASE_URL": "postgres://x"},
		"prod missing db":    {"APP_ENV": "production", "JWT_SECRET": "s3cret"},
		"negative cache ttl": {"AVAILABILITY_CACHE_TTL": "-1s"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
