package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

type recordingTx struct{ calls int }

func (r *recordingTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	r.calls++
	return fn(nil)
}

type fakeOutbox struct {
	cutoff      time.Time
	maxAttempts int
}

func (f *fakeOutbox) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.cutoff = cutoff
	f.maxAttempts = minAttemptCount
	return 4, nil
}

type fakeNotifications struct{ cutoff time.Time }

func (f *fakeNotifications) DeleteOlderThan(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 2, nil
}

type fakeDLQ struct{ cutoff time.Time }

func (f *fakeDLQ) DeleteFailedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

type fakeResetKeys struct {
	cutoff time.Time
	err    error
}

func (f *fakeResetKeys) ClearResetKeysIssuedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 1, f.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func pinClock(job *PurgeJob) *PurgeJob {
	job.now = func() time.Time { return fixedNow }
	return job
}

func TestOutboxRetentionRunsInTransaction(t *testing.T) {
	tx := &recordingTx{}
	repo := &fakeOutbox{}
	job, err := OutboxRetention(logger.Nop(), tx, repo, 30, 8)
	require.NoError(t, err)

	require.NoError(t, pinClock(job).Run(context.Background()))
	assert.Equal(t, "outbox-retention", job.Name())
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, fixedNow.Add(-30*24*time.Hour), repo.cutoff)
	assert.Equal(t, 8, repo.maxAttempts)
}

func TestRetentionDefaults(t *testing.T) {
	outboxRepo := &fakeOutbox{}
	outboxJob, err := OutboxRetention(logger.Nop(), &recordingTx{}, outboxRepo, 0, 0)
	require.NoError(t, err)
	require.NoError(t, pinClock(outboxJob).Run(context.Background()))
	assert.Equal(t, fixedNow.Add(-30*24*time.Hour), outboxRepo.cutoff)
	assert.Equal(t, 5, outboxRepo.maxAttempts)

	notificationRepo := &fakeNotifications{}
	notificationJob, err := NotificationRetention(logger.Nop(), &recordingTx{}, notificationRepo, 0)
	require.NoError(t, err)
	require.NoError(t, pinClock(notificationJob).Run(context.Background()))
	assert.Equal(t, fixedNow.Add(-90*24*time.Hour), notificationRepo.cutoff)

	dlqRepo := &fakeDLQ{}
	dlqJob, err := DLQRetention(logger.Nop(), &recordingTx{}, dlqRepo, 0)
	require.NoError(t, err)
	require.NoError(t, pinClock(dlqJob).Run(context.Background()))
	assert.Equal(t, "dlq-retention", dlqJob.Name())
	assert.Equal(t, fixedNow.Add(-90*24*time.Hour), dlqRepo.cutoff)
}

func TestResetKeyExpiryRunsWithoutTransaction(t *testing.T) {
	repo := &fakeResetKeys{}
	job, err := ResetKeyExpiry(logger.Nop(), repo, 2*time.Hour)
	require.NoError(t, err)

	require.NoError(t, pinClock(job).Run(context.Background()))
	assert.Equal(t, fixedNow.Add(-2*time.Hour), repo.cutoff)

	repo.err = errors.New("db gone")
	assert.EqualError(t, job.Run(context.Background()), "db gone")
}

func TestPurgeJobValidation(t *testing.T) {
	noop := func(context.Context, *gorm.DB, time.Time) (int64, error) { return 0, nil }

	_, err := NewPurgeJob("", logger.Nop(), nil, time.Hour, noop)
	assert.Error(t, err)
	_, err = NewPurgeJob("x", nil, nil, time.Hour, noop)
	assert.Error(t, err)
	_, err = NewPurgeJob("x", logger.Nop(), nil, 0, noop)
	assert.Error(t, err)
	_, err = NewPurgeJob("x", logger.Nop(), nil, time.Hour, nil)
	assert.Error(t, err)

	_, err = DLQRetention(logger.Nop(), nil, nil, 1)
	assert.Error(t, err)
	_, err = OutboxRetention(logger.Nop(), nil, nil, 1, 1)
	assert.Error(t, err)
	_, err = ResetKeyExpiry(logger.Nop(), nil, time.Hour)
	assert.Error(t, err)
}
