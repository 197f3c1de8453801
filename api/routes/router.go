package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/krishnaroyalclub/krc-backend/api/controllers"
	"github.com/krishnaroyalclub/krc-backend/api/middleware"
	"github.com/krishnaroyalclub/krc-backend/internal/accounts"
	"github.com/krishnaroyalclub/krc-backend/internal/auth"
	"github.com/krishnaroyalclub/krc-backend/internal/booking"
	"github.com/krishnaroyalclub/krc-backend/internal/catalog"
	"github.com/krishnaroyalclub/krc-backend/internal/onboarding"
	"github.com/krishnaroyalclub/krc-backend/internal/orders"
	"github.com/krishnaroyalclub/krc-backend/pkg/auth/session"
	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	pkgredis "github.com/krishnaroyalclub/krc-backend/pkg/redis"
)

// CacheStore is the Redis surface used by rate limiting and idempotency.
type CacheStore interface {
	pkgredis.IdempotencyStore
	middleware.WindowCounter
}

// Services bundles the handlers' collaborators.
type Services struct {
	Accounts   accounts.Provisioner
	Auth       auth.Service
	Catalog    catalog.Reader
	Booking    booking.Orchestrator
	Onboarding onboarding.Service
	Orders     orders.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	cache CacheStore,
	sessions session.AccessSessionChecker,
	svc Services,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.Frontend.BaseURL),
	)

	loginPolicy := middleware.RateLimitPolicy{
		Name:       "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
		EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.RateLimitPolicy{
		Name:       "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		IPLimit:    cfg.AuthRateLimit.RegisterIPLimit,
		EmailLimit: cfg.AuthRateLimit.RegisterEmailLimit,
	}
	resetPolicy := middleware.RateLimitPolicy{
		Name:       "reset",
		Window:     cfg.AuthRateLimit.ResetWindow,
		IPLimit:    cfg.AuthRateLimit.ResetIPLimit,
		EmailLimit: cfg.AuthRateLimit.ResetEmailLimit,
	}

	guestReplay := middleware.IdempotencyPolicy{Scope: "guest", TTL: 24 * time.Hour}
	staffReplay := middleware.IdempotencyPolicy{Scope: "staff", TTL: 7 * 24 * time.Hour, Required: true}

	var redisPinger controllers.Pinger
	if cache != nil {
		if p, ok := cache.(controllers.Pinger); ok {
			redisPinger = p
		}
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(registerPolicy, cache, logg)).Post("/accounts", controllers.CreateAccount(svc.Accounts, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(loginPolicy, cache, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.With(middleware.RateLimit(resetPolicy, cache, logg)).Post("/password/forgot", controllers.ForgotPassword(svc.Auth, logg))
			r.Post("/password/reset", controllers.ResetPassword(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
		})

		r.Get("/catalog/items", controllers.ListItems(svc.Catalog, logg))
		r.Post("/catalog/items", controllers.ListItems(svc.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, sessions, logg))
			replay := middleware.Idempotency(cache, guestReplay, logg)
			r.With(replay).Post("/onboardings", controllers.CreateOnboarding(svc.Onboarding, logg))
			r.With(replay).Post("/bookings", controllers.CreateBooking(svc.Booking, logg))
			r.Post("/opportunities", controllers.CreateOpportunity(svc.Booking, logg))
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.RequireRole(enums.RoleStaff, logg))
			r.Use(middleware.Idempotency(cache, staffReplay, logg))
			r.Post("/orders/{orderId}/submit", controllers.StaffSubmitOrder(svc.Orders, logg))
			r.Post("/orders/{orderId}/cancel", controllers.StaffCancelOrder(svc.Orders, logg))
			r.Post("/onboardings/{onboardingId}/submit", controllers.StaffSubmitOnboarding(svc.Onboarding, logg))
			r.Post("/onboardings/{onboardingId}/cancel", controllers.StaffCancelOnboarding(svc.Onboarding, logg))
			r.Patch("/onboardings/{onboardingId}", controllers.StaffUpdateOnboarding(svc.Onboarding, logg))
		})
	})

	return r
}
