package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/sheetsync-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/sheetsync-backend/api/controllers/webhooks"
	"github.com/angelmondragon/sheetsync-backend/api/middleware"
	stripewebhook "github.com/angelmondragon/sheetsync-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/sheetsync-backend/pkg/config"
	"github.com/angelmondragon/sheetsync-backend/pkg/logger"
	"github.com/angelmondragon/sheetsync-backend/pkg/metrics"
	"github.com/angelmondragon/sheetsync-backend/pkg/redis"
	"github.com/angelmondragon/sheetsync-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	stripeClient *stripe.Client,
	webhookService webhookcontrollers.StripeWebhookService,
	webhookGuard *stripewebhook.IdempotencyGuard,
	webhookMetrics *metrics.WebhookMetrics,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, redisClient, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(webhookService, stripeClient, webhookGuard, webhookMetrics, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return r
}
