package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/bottlespin/bottlespin-backend/api/responses"
	"github.com/bottlespin/bottlespin-backend/pkg/config"
	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
)

type scanLimiterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// ScanRateLimit throttles scan submissions per authenticated user with a
// fixed-window counter in Redis.
func ScanRateLimit(cfg config.RateLimitConfig, store scanLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.ScanWindow <= 0 || cfg.ScanLimit <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := store.RateLimitKey("scans:" + userID)
			count, err := store.IncrWithTTL(ctx, key, cfg.ScanWindow)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if count > int64(cfg.ScanLimit) {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"attempts":       count,
						"limit":          cfg.ScanLimit,
						"window_seconds": int(cfg.ScanWindow.Seconds()),
					})
					logg.Warn(logCtx, "scan submission rate limited")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many scan submissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
