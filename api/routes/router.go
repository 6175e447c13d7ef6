package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bottlespin/bottlespin-backend/api/controllers"
	"github.com/bottlespin/bottlespin-backend/api/middleware"
	"github.com/bottlespin/bottlespin-backend/internal/ledger"
	"github.com/bottlespin/bottlespin-backend/internal/scans"
	"github.com/bottlespin/bottlespin-backend/internal/stats"
	"github.com/bottlespin/bottlespin-backend/pkg/config"
	"github.com/bottlespin/bottlespin-backend/pkg/db"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
	pkgredis "github.com/bottlespin/bottlespin-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger db.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	scanService scans.Service,
	ledgerService ledger.Service,
	statsService stats.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/v1", func(r chi.Router) {
			r.Route("/scans", func(r chi.Router) {
				r.With(middleware.ScanRateLimit(cfg.RateLimit, redisClient, logg)).
					Post("/", controllers.ScanSubmit(scanService, logg))
				r.Get("/mine", controllers.ScanListMine(scanService, logg))
			})

			r.Route("/user", func(r chi.Router) {
				r.Get("/metrics", controllers.UserMetrics(statsService, logg))
				r.Get("/activity", controllers.UserActivity(statsService, logg))
			})

			r.Get("/leaderboard", controllers.Leaderboard(statsService, logg))

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/balance", controllers.WalletBalance(ledgerService, logg))
				r.Get("/transactions", controllers.WalletTransactions(ledgerService, logg))
				r.Post("/withdraw", controllers.WalletWithdraw(ledgerService, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole("admin", logg))
				r.Get("/scans/pending", controllers.AdminPendingScans(scanService, logg))
				r.Post("/scans/{requestId}/resolve", controllers.AdminResolveScan(scanService, logg))
				r.Post("/codes", controllers.AdminRegisterCode(scanService, logg))
				r.Post("/returns", controllers.AdminManualReturn(ledgerService, logg))
			})
		})
	})

	return r
}
