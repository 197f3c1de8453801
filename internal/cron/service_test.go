package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	err      error
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(&countingJob{name: "a"}, nil, &countingJob{name: "b"}))
	err := reg.Add(&countingJob{name: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Equal(t, 2, reg.Len())
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	ok := &countingJob{name: "ok"}
	broken := &countingJob{name: "broken", err: errors.New("boom")}
	last := &countingJob{name: "last"}
	reg := NewRegistry()
	require.NoError(t, reg.Add(ok, broken, last))

	promReg := prometheus.NewRegistry()
	jobMetrics := metrics.NewCronJobMetrics(promReg)
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: reg, Lock: lock, Metrics: jobMetrics})
	require.NoError(t, err)

	report, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, 3, report.Ran)
	assert.Equal(t, []string{"broken"}, report.Failed)
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, broken.runs)
	assert.Equal(t, 1, last.runs)
	assert.Equal(t, 1, lock.releases)

	assert.Equal(t, 1.0, runCount(t, promReg, "broken", metrics.OutcomeFailure))
	assert.Equal(t, 1.0, runCount(t, promReg, "last", metrics.OutcomeSuccess))
	assert.Zero(t, runCount(t, promReg, "ok", metrics.OutcomeFailure))
}

func runCount(t *testing.T, g prometheus.Gatherer, job, outcome string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "krc_cron_job_runs_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["job"] == job && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "only"}
	reg := NewRegistry()
	require.NoError(t, reg.Add(job))
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: reg, Lock: &fakeLock{held: true}})
	require.NoError(t, err)

	report, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, job.runs)
}

func TestRunOnceReportsLockError(t *testing.T) {
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{err: errors.New("redis down")}})
	require.NoError(t, err)

	_, err = svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "tick"}
	reg := NewRegistry()
	require.NoError(t, reg.Add(job))
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: reg, Lock: &fakeLock{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
	assert.Equal(t, 1, job.runs)
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
