package core_fx

import (
	"time"

	"glucoach/internal/config"
	"glucoach/pkg/middleware"
	"glucoach/pkg/utils"
	"go.uber.org/fx"
)

var Module = fx.Provide(
	provideClock, provideSequence, provideTokenIssuer, provideRateLimiter)

func provideClock() utils.Clock {
	return utils.SystemClock{}
}

func provideSequence(cfg *config.Config) (utils.SequenceGenerator, error) {
	return utils.NewSnowflakeSequence(cfg.Server.NodeID)
}

func provideTokenIssuer(cfg *config.Config, clock utils.Clock) *utils.TokenIssuer {
	expiry := time.Duration(cfg.Security.JWTExpiryHours) * time.Hour
	return utils.NewTokenIssuer(cfg.Security.JWTSecret, expiry, clock)
}

func provideRateLimiter(cfg *config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}
