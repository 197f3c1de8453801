package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/internal/notifications"
	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/registry"
)

type txDB interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type notifier interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// RelayParams wire the outbox relay.
type RelayParams struct {
	Outbox      config.OutboxConfig
	Logger      *logger.Logger
	DB          txDB
	Sender      topicSender
	Store       eventStore
	DeadLetters deadLetters
	Resolver    resolver
	Notifier    notifier
	Metrics     *metrics.OutboxMetrics
}

// Relay moves committed outbox rows to Pub/Sub. Notification events are
// emailed first. Rows are locked for the duration of a batch so replicas
// never hand out the same event twice.
type Relay struct {
	logg        *logger.Logger
	db          txDB
	sender      topicSender
	store       eventStore
	dead        deadLetters
	resolver    resolver
	notifier    notifier
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Sender == nil:
		return nil, errors.New("topic sender is required")
	case params.Store == nil:
		return nil, errors.New("outbox repository is required")
	case params.DeadLetters == nil:
		return nil, errors.New("dlq repository is required")
	case params.Resolver == nil:
		return nil, errors.New("event registry is required")
	}
	return &Relay{
		logg:        params.Logger,
		db:          params.DB,
		sender:      params.Sender,
		store:       params.Store,
		dead:        params.DeadLetters,
		resolver:    params.Resolver,
		notifier:    params.Notifier,
		metrics:     params.Metrics,
		batchSize:   positiveOr(params.Outbox.BatchSize, 50),
		maxAttempts: positiveOr(params.Outbox.MaxAttempts, 10),
		poll:        time.Duration(positiveOr(params.Outbox.PollIntervalMS, 500)) * time.Millisecond,
	}, nil
}

// Run drains the outbox until ctx is cancelled. Full batches are followed
// immediately by the next one; empty polls and failures sleep.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := r.sender.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub not ready: %w", err)
	}

	wait := newPollBackoff(r.poll, 10*time.Second)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		busy, err := r.drain(ctx)
		if err != nil {
			r.logg.Error(ctx, "outbox batch failed", err)
		}
		if busy && err == nil {
			wait.reset()
			continue
		}
		if err := sleepCtx(ctx, wait.next(err != nil)); err != nil {
			return err
		}
	}
}

// drain handles one locked batch. It reports whether any rows were found.
func (r *Relay) drain(ctx context.Context) (bool, error) {
	found := false
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		found = len(events) > 0
		for _, event := range events {
			if err := r.settle(ctx, tx, event, r.attempt(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	return found, err
}

type verdict int

const (
	published verdict = iota
	retry
	deadLetter
)

type outcome struct {
	verdict verdict
	reason  enums.OutboxDLQErrorReason
	err     error
	fields  map[string]any
}

func (r *Relay) attempt(ctx context.Context, event models.OutboxEvent) outcome {
	resolved, err := r.resolver.Resolve(event)
	if err != nil {
		return outcome{verdict: deadLetter, reason: enums.OutboxDLQReasonNonRetryable, err: err, fields: eventFields(event, nil)}
	}
	fields := eventFields(event, resolved)

	err = r.deliver(ctx, event, resolved)
	switch {
	case err == nil:
		return outcome{verdict: published, fields: fields}
	case errors.Is(err, notifications.ErrMalformed):
		return outcome{verdict: deadLetter, reason: enums.OutboxDLQReasonUndeliverable, err: err, fields: fields}
	case registry.IsPermanent(err):
		return outcome{verdict: deadLetter, reason: enums.OutboxDLQReasonNonRetryable, err: err, fields: fields}
	case event.AttemptCount+1 >= r.maxAttempts:
		return outcome{
			verdict: deadLetter,
			reason:  enums.OutboxDLQReasonMaxAttempts,
			err:     fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, err),
			fields:  fields,
		}
	default:
		return outcome{verdict: retry, err: err, fields: fields}
	}
}

// deliver emails notification events before publishing them. A failed
// publish is retried later without a second email.
func (r *Relay) deliver(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	if resolved.Descriptor.Notify && r.notifier != nil {
		if err := r.notifier.Process(ctx, event.EventType, resolved.Envelope); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}

	_, err := r.sender.Send(ctx, resolved.Descriptor.Topic, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	return err
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, out outcome) error {
	kind := string(event.EventType)
	logCtx := r.logg.WithFields(ctx, out.fields)

	switch out.verdict {
	case published:
		if err := r.store.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		r.metrics.IncPublished(kind)
		r.logg.Info(logCtx, "outbox event published")
		return nil

	case retry:
		r.metrics.IncFailed(kind)
		r.logg.Warn(r.logg.WithField(logCtx, "error", out.err.Error()), "outbox publish failed, will retry")
		if err := r.store.MarkFailedTx(tx, event.ID, out.err); err != nil {
			return fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
		return nil
	}

	r.metrics.IncFailed(kind)
	r.logg.Warn(r.logg.WithFields(logCtx, map[string]any{
		"error":        out.err.Error(),
		"error_reason": out.reason,
	}), "outbox event dead-lettered")

	message := out.err.Error()
	if err := r.dead.InsertTx(tx, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   out.reason,
		ErrorMessage:  &message,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := r.store.MarkTerminalTx(tx, event.ID, out.err); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	r.metrics.IncDeadLettered(kind)
	return nil
}

func eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		fields["event_id"] = resolved.Envelope.EventID
	}
	return fields
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
