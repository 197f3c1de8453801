package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/krishnaroyalclub/krc-backend/internal/notifications"
	"github.com/krishnaroyalclub/krc-backend/pkg/bootstrap"
	"github.com/krishnaroyalclub/krc-backend/pkg/email"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/registry"
	"github.com/krishnaroyalclub/krc-backend/pkg/pubsub"
)

const (
	sendGuardTTL           = 7 * 24 * time.Hour
	metricsShutdownTimeout = 5 * time.Second
)

func main() {
	bootstrap.Main(bootstrap.Options{Service: "outbox-publisher", WithRedis: true}, run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("open pubsub: %w", err)
	}
	rt.OnClose("pubsub", pubsubClient.Close)

	guard, err := notifications.NewSendGuard(rt.Redis, sendGuardTTL)
	if err != nil {
		return err
	}

	var sender email.Sender = email.NewLogSender(logg)
	if cfg.Resend.Enabled() {
		sender = email.NewResendSender(cfg.Resend.APIKey, cfg.Resend.DefaultFrom, logg)
	} else {
		logg.Warn(ctx, "resend api key missing, notification emails are only logged")
	}

	outboxMetrics := metrics.NewOutboxMetrics(prometheus.DefaultRegisterer)
	consumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Sender:     sender,
		Repository: notifications.NewRepository(rt.DB.DB()),
		Guard:      guard,
		Logger:     logg,
		Metrics:    outboxMetrics,
	})
	if err != nil {
		return err
	}

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}
	relay, err := NewRelay(RelayParams{
		Outbox:      cfg.Outbox,
		Logger:      logg,
		DB:          rt.DB,
		Sender:      pubsubSender{client: pubsubClient},
		Store:       outbox.NewRepository(rt.DB.DB()),
		DeadLetters: outbox.NewDLQRepository(rt.DB.DB()),
		Resolver:    events,
		Notifier:    consumer,
		Metrics:     outboxMetrics,
	})
	if err != nil {
		return err
	}

	stopMetrics := serveMetrics(ctx, rt, ":"+cfg.App.Port)
	defer stopMetrics()

	logg.Info(ctx, "starting outbox publisher")
	return relay.Run(ctx)
}

func serveMetrics(ctx context.Context, rt *bootstrap.Runtime, addr string) func() {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger.Error(ctx, "metrics server stopped", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}
