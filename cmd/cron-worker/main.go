package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/krishnaroyalclub/krc-backend/internal/accounts"
	"github.com/krishnaroyalclub/krc-backend/internal/cron"
	"github.com/krishnaroyalclub/krc-backend/internal/notifications"
	"github.com/krishnaroyalclub/krc-backend/pkg/bootstrap"
	"github.com/krishnaroyalclub/krc-backend/pkg/lock"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
)

func main() {
	bootstrap.Main(bootstrap.Options{Service: "cron-worker", WithRedis: true}, run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg := rt.Config

	scope := cfg.App.Env
	if scope == "" {
		scope = "local"
	}
	held, err := lock.NewRedisLock(rt.Redis, rt.Redis.LockKey("cron-worker", scope), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	jobs, err := registry(rt)
	if err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   rt.Logger,
		Registry: jobs,
		Lock:     held,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	rt.Logger.Info(rt.Logger.WithField(ctx, "interval", cfg.Cron.Interval.String()), "starting cron worker")
	return service.Run(ctx)
}

func registry(rt *bootstrap.Runtime) (*cron.Registry, error) {
	cfg, gdb := rt.Config, rt.DB.DB()

	outboxJob, err := cron.OutboxRetention(rt.Logger, rt.DB, outbox.NewRepository(gdb), cfg.Cron.OutboxRetentionDays, cfg.Outbox.MaxAttempts)
	if err != nil {
		return nil, err
	}
	dlqJob, err := cron.DLQRetention(rt.Logger, rt.DB, outbox.NewDLQRepository(gdb), cfg.Cron.DLQRetentionDays)
	if err != nil {
		return nil, err
	}
	notificationJob, err := cron.NotificationRetention(rt.Logger, rt.DB, notifications.NewRepository(gdb), cfg.Cron.NotificationRetentionDays)
	if err != nil {
		return nil, err
	}
	resetJob, err := cron.ResetKeyExpiry(rt.Logger, accounts.NewRepository(gdb), cfg.Reset.TokenTTL)
	if err != nil {
		return nil, err
	}

	jobs := cron.NewRegistry()
	return jobs, jobs.Add(outboxJob, dlqJob, notificationJob, resetJob)
}
