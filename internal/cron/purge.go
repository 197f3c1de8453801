package cron

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

const day = 24 * time.Hour

// PurgeFunc removes rows older than cutoff and reports how many went away.
// tx is nil when the job runs without a transaction runner.
type PurgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// PurgeJob deletes data that has aged past a fixed window.
type PurgeJob struct {
	name   string
	logg   *logger.Logger
	db     txRunner
	window time.Duration
	purge  PurgeFunc
	now    func() time.Time
}

// NewPurgeJob builds a PurgeJob. db may be nil for purges that manage their
// own statements.
func NewPurgeJob(name string, logg *logger.Logger, db txRunner, window time.Duration, purge PurgeFunc) (*PurgeJob, error) {
	switch {
	case name == "":
		return nil, errors.New("purge job name required")
	case logg == nil:
		return nil, errors.New("logger required")
	case purge == nil:
		return nil, errors.New("purge func required")
	case window <= 0:
		return nil, errors.New("purge window must be positive")
	}
	return &PurgeJob{name: name, logg: logg, db: db, window: window, purge: purge, now: time.Now}, nil
}

func (j *PurgeJob) Name() string { return j.name }

func (j *PurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)

	var removed int64
	apply := func(tx *gorm.DB) error {
		n, err := j.purge(ctx, tx, cutoff)
		removed = n
		return err
	}
	var err error
	if j.db != nil {
		err = j.db.WithTx(ctx, apply)
	} else {
		err = apply(nil)
	}
	if err != nil {
		return err
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"window":  j.window.String(),
		"removed": removed,
	}), "purge complete")
	return nil
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// OutboxRetention drops published outbox rows and rows that exhausted their
// delivery attempts once they are older than days.
func OutboxRetention(logg *logger.Logger, db txRunner, repo outboxPurger, days, maxAttempts int) (*PurgeJob, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return NewPurgeJob("outbox-retention", logg, db, daysOr(days, 30), func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
		return repo.DeletePublishedBefore(ctx, tx, cutoff, maxAttempts)
	})
}

type dlqPurger interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// DLQRetention drops dead letters once nobody is expected to replay them.
func DLQRetention(logg *logger.Logger, db txRunner, repo dlqPurger, days int) (*PurgeJob, error) {
	if repo == nil {
		return nil, errors.New("dlq repository required")
	}
	return NewPurgeJob("dlq-retention", logg, db, daysOr(days, 90), repo.DeleteFailedBefore)
}

type notificationPurger interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NotificationRetention trims the sent-email log.
func NotificationRetention(logg *logger.Logger, db txRunner, repo notificationPurger, days int) (*PurgeJob, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	return NewPurgeJob("notification-retention", logg, db, daysOr(days, 90), repo.DeleteOlderThan)
}

type resetKeyPurger interface {
	ClearResetKeysIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResetKeyExpiry clears password reset keys that can no longer be redeemed.
func ResetKeyExpiry(logg *logger.Logger, repo resetKeyPurger, ttl time.Duration) (*PurgeJob, error) {
	if repo == nil {
		return nil, errors.New("accounts repository required")
	}
	if ttl <= 0 {
		ttl = day
	}
	return NewPurgeJob("reset-key-expiry", logg, nil, ttl, func(ctx context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
		return repo.ClearResetKeysIssuedBefore(ctx, cutoff)
	})
}

func daysOr(days, fallback int) time.Duration {
	if days <= 0 {
		days = fallback
	}
	return time.Duration(days) * day
}
