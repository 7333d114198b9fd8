package main

import (
	"flag"
	"fmt"
	"os"

	"appointly/internal/config"
	"appointly/internal/domain"
	"appointly/internal/logger"
	jwtsvc "appointly/internal/pkg/jwt"
)

// devtoken mints a bearer token for local testing against the API.
//
//	go run ./cmd/devtoken -user 1 -role customer
//	go run ./cmd/devtoken -user 50 -role provider -provider 1
func main() {
	userID := flag.Int64("user", 1, "user id")
	role := flag.String("role", string(domain.RoleCustomer), "customer, provider or admin")
	providerID := flag.Int64("provider", 0, "provider id the user manages (role=provider)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("appointly-devtoken", "dev", "info")
		logger.Get().Fatal().Err(err).Msg("config")
	}
	logger.Init("appointly-devtoken", cfg.AppEnv, cfg.LogLevel)
	log := logger.Get()

	if config.IsProdLike(cfg.AppEnv) {
		log.Fatal().Str("env", cfg.AppEnv).Msg("dev tokens are disabled in production")
	}
	if !domain.UserRole(*role).Valid() {
		log.Fatal().Str("role", *role).Msg("unknown role")
	}
	if domain.UserRole(*role) == domain.RoleProvider && *providerID <= 0 {
		log.Fatal().Msg("-provider is required for role=provider")
	}

	token, err := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL).GenerateToken(*userID, *role, *providerID)
	if err != nil {
		log.Fatal().Err(err).Msg("generate token")
	}
	fmt.Fprintln(os.Stdout, token)
}
