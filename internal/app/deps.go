package app

import (
	"context"
	"time"

	"github.com/friendgraph/backend/internal/accounts"
	"github.com/friendgraph/backend/internal/auth"
	"github.com/friendgraph/backend/internal/config"
	"github.com/friendgraph/backend/internal/db"
	"github.com/friendgraph/backend/internal/friends"
	"github.com/friendgraph/backend/internal/handlers"
	"github.com/friendgraph/backend/internal/metrics"
	"github.com/friendgraph/backend/internal/middleware"
	"github.com/friendgraph/backend/internal/repositories"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(pool db.Pool, cfg config.Config, registry *metrics.Registry) handlers.Dependencies {
	sessionStore := repositories.NewPostgresSessionStore(pool)
	signer := auth.NewTokenSigner(cfg.JWTSecret)
	limiter := middleware.NewKeyedRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst, 10*time.Minute)

	return handlers.Dependencies{
		Accounts: accounts.NewAccounts(repositories.NewPostgresUserRepository(pool)),
		Sessions: auth.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, signer, sessionStore),
		Friends:  friends.NewService(repositories.NewPostgresGraphStore(pool), registry),
		Limiter:  limiter,
		Metrics:  registry.Handler(),
		HealthCheck: func(ctx context.Context) error {
			return db.Ping(ctx, pool)
		},
	}
}
