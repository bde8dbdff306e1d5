package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mondodoro/mondodoro-backend/api/controllers"
	webhookcontrollers "github.com/mondodoro/mondodoro-backend/api/controllers/webhooks"
	"github.com/mondodoro/mondodoro-backend/api/middleware"
	"github.com/mondodoro/mondodoro-backend/internal/contributions"
	"github.com/mondodoro/mondodoro-backend/internal/giftlists"
	"github.com/mondodoro/mondodoro-backend/internal/payees"
	stripewebhook "github.com/mondodoro/mondodoro-backend/internal/webhooks/stripe"
	"github.com/mondodoro/mondodoro-backend/pkg/config"
	"github.com/mondodoro/mondodoro-backend/pkg/db"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
	"github.com/mondodoro/mondodoro-backend/pkg/redis"
	"github.com/mondodoro/mondodoro-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	giftListRepo giftlists.Repository,
	contributionService *contributions.Service,
	payeeService *payees.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/fees/split", controllers.SplitFees(logg))

		r.Route("/gift-lists/{giftListID}", func(r chi.Router) {
			r.Get("/", controllers.GiftListProgress(giftListRepo, logg))
			r.Post("/contributions", controllers.CreateContribution(contributionService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/checkout-session", controllers.CreateCheckoutSession(contributionService, logg))
			r.Post("/confirm", controllers.ConfirmPayment(contributionService, logg))
		})

		r.Route("/payees", func(r chi.Router) {
			r.Post("/onboarding", controllers.StartPayeeOnboarding(payeeService, logg))
			r.Get("/onboarding/return", controllers.CompletePayeeOnboarding(payeeService, logg))
		})
	})

	return r
}
