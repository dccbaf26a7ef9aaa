package app

import (
	"log/slog"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(pool db.Pool, cfg config.Config, logger *slog.Logger, cache *auth.ProfileCache, uploads *storage.S3Gateway) handlers.Dependencies {
	users := repositories.NewPostgresUserStore(pool)

	tokens := auth.NewTokenManager(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	verifier := auth.NewVerifier(tokens, cache, users)

	deps := handlers.Dependencies{
		Logger:        logger,
		Users:         users,
		Videos:        repositories.NewPostgresVideoStore(pool),
		Comments:      repositories.NewPostgresCommentStore(pool),
		Likes:         repositories.NewPostgresLikeStore(pool),
		Subscriptions: repositories.NewPostgresSubscriptionStore(pool),
		Playlists:     repositories.NewPostgresPlaylistStore(pool),
		History:       repositories.NewPostgresHistoryStore(pool),
		Tokens:        tokens,
		Verifier:      verifier,
		Cache:         cache,
		AuthLimiter:   middleware.NewIPRateLimiter(10, time.Minute, 10, 10*time.Minute),
		CookieSecure:  cfg.CookieSecure,
	}

	// A typed nil gateway must not reach the interface field, the handlers
	// treat a nil interface as "uploads disabled".
	if uploads != nil {
		deps.Uploads = uploads
	}

	return deps
}
