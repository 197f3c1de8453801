package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
)

// Lock keeps replicas of the worker from running the same cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval while holding Lock.
type Service struct {
	logg     *logger.Logger
	jobs     *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

// CycleReport summarises one pass over the registry.
type CycleReport struct {
	Skipped bool
	Ran     int
	Failed  []string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	jobs := params.Registry
	if jobs == nil {
		jobs = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{
		logg:     params.Logger,
		jobs:     jobs,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron worker stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs all jobs a single time. A failing job does not stop the rest.
// The report is Skipped when another replica holds the lock.
func (s *Service) RunOnce(ctx context.Context) (CycleReport, error) {
	var report CycleReport
	ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !ok {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		report.Skipped = true
		return report, nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	s.jobs.each(func(job Job) {
		report.Ran++
		if !s.runJob(ctx, job) {
			report.Failed = append(report.Failed, job.Name())
		}
	})
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":   report.Ran,
		"failed": len(report.Failed),
	}), "cron cycle complete")
	return report, nil
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})

	started := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(started)

	s.metrics.ObserveDuration(name, elapsed)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(jobCtx, "cron job failed", err)
		return false
	}
	s.metrics.IncSuccess(name)
	s.logg.Info(jobCtx, "cron job done")
	return true
}
