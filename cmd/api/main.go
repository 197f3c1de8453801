package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/krishnaroyalclub/krc-backend/api/routes"
	"github.com/krishnaroyalclub/krc-backend/internal/accounts"
	"github.com/krishnaroyalclub/krc-backend/internal/auth"
	"github.com/krishnaroyalclub/krc-backend/internal/booking"
	"github.com/krishnaroyalclub/krc-backend/internal/catalog"
	"github.com/krishnaroyalclub/krc-backend/internal/onboarding"
	"github.com/krishnaroyalclub/krc-backend/internal/orders"
	"github.com/krishnaroyalclub/krc-backend/pkg/auth/session"
	"github.com/krishnaroyalclub/krc-backend/pkg/bootstrap"
	"github.com/krishnaroyalclub/krc-backend/pkg/lock"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/storage/gcs"
)

const (
	customerLockScope = "booking"
	shutdownTimeout   = 10 * time.Second
)

func main() {
	bootstrap.Main(bootstrap.Options{Service: "api", WithRedis: true}, run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg := rt.Config

	sessions, err := session.NewManager(rt.Redis, cfg.JWT)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}
	locker, err := lock.NewRedisLocker(rt.Redis, func(name string) string {
		return rt.Redis.LockKey(customerLockScope, name)
	}, cfg.Booking.CustomerLockTTL, cfg.Booking.CustomerLockWait)
	if err != nil {
		return fmt.Errorf("customer locker: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	emitter := outbox.NewWriter(outbox.NewRepository(rt.DB.DB()), rt.Logger)
	services, err := buildServices(ctx, rt, sessions, emitter, locker, lifecycleMetrics)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}

	// PORT is set by the hosting platform and wins over KRC_APP_PORT.
	port := cfg.App.Port
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(cfg, rt.Logger, rt.DB, rt.Redis, sessions, services, metrics.NewHTTPMetrics(registry), registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(rt.Logger.WithField(ctx, "addr", server.Addr), rt, server)
}

// serve blocks until the server fails or ctx ends, then drains in-flight
// requests for up to shutdownTimeout.
func serve(ctx context.Context, rt *bootstrap.Runtime, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	rt.Logger.Info(ctx, "starting api server")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func buildServices(ctx context.Context, rt *bootstrap.Runtime, sessions *session.Manager, emitter outbox.Emitter, locker lock.Locker, lifecycleMetrics *metrics.LifecycleMetrics) (routes.Services, error) {
	cfg, logg, dbClient := rt.Config, rt.Logger, rt.DB
	provisioner, err := accounts.NewProvisioner(accounts.ProvisionerParams{
		DB:       dbClient,
		Outbox:   emitter,
		Defaults: cfg.Defaults,
		Password: cfg.Password,
		Logger:   logg,
		Metrics:  lifecycleMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		SessionManager: sessions,
		Outbox:         emitter,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		ResetConfig:    cfg.Reset,
		FrontendConfig: cfg.Frontend,
		Logger:         logg,
		Metrics:        lifecycleMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}

	reader, err := catalog.NewReader(dbClient, cfg.Defaults, logg, lifecycleMetrics)
	if err != nil {
		return routes.Services{}, err
	}

	guard, err := orders.NewGuard(orders.GuardParams{
		Outbox:  emitter,
		Logger:  logg,
		Metrics: lifecycleMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}
	orderService, err := orders.NewService(dbClient, guard)
	if err != nil {
		return routes.Services{}, err
	}

	orchestrator, err := booking.New(booking.Params{
		DB:       dbClient,
		Guard:    guard,
		Outbox:   emitter,
		Locker:   locker,
		Defaults: cfg.Defaults,
		Logger:   logg,
		Metrics:  lifecycleMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}

	machine, err := onboarding.NewMachine(onboarding.MachineParams{
		Guard:    guard,
		Outbox:   emitter,
		Defaults: cfg.Defaults,
		Logger:   logg,
		Metrics:  lifecycleMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}

	var photos onboarding.PhotoStore
	if cfg.FeatureFlags.UploadPhotos {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Warn(ctx, "photo storage unavailable, onboarding photos will be skipped: "+err.Error())
		} else {
			photos = gcsClient
		}
	}

	onboardingService, err := onboarding.NewService(onboarding.ServiceParams{
		DB:       dbClient,
		Machine:  machine,
		Locker:   locker,
		Photos:   photos,
		Defaults: cfg.Defaults,
		Logger:   logg,
		Metrics:  lifecycleMetrics,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Accounts:   provisioner,
		Auth:       authService,
		Catalog:    reader,
		Booking:    orchestrator,
		Onboarding: onboardingService,
		Orders:     orderService,
	}, nil
}
