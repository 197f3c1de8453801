package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/email"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/payloads"
)

// ErrMalformed marks envelopes that can never be delivered. Callers should
// not retry them.
var ErrMalformed = errors.New("malformed notification event")

type claimer interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, eventID uuid.UUID) error
}

type recorder interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// ConsumerParams wires the email consumer.
type ConsumerParams struct {
	Sender     email.Sender
	Repository recorder
	Guard      claimer
	Logger     *logger.Logger
	Metrics    *metrics.OutboxMetrics
}

// Consumer turns notification outbox events into emails.
type Consumer struct {
	sender  email.Sender
	repo    recorder
	guard   claimer
	logg    *logger.Logger
	metrics *metrics.OutboxMetrics
}

// NewConsumer builds the email consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("send guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		sender:  params.Sender,
		repo:    params.Repository,
		guard:   params.Guard,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

type message struct {
	kind      enums.NotificationType
	recipient string
	subject   string
	html      string
}

// Process sends the email for a notification event at most once per event id.
// Events that are not notifications are ignored.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	kind, ok := eventType.Notification()
	if !ok {
		return nil
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("%w: invalid event id: %v", ErrMalformed, err)
	}

	msg, err := compose(kind, envelope)
	if err != nil {
		return err
	}

	claimed, err := c.guard.Claim(ctx, eventID)
	if err != nil {
		return fmt.Errorf("claim send: %w", err)
	}
	if !claimed {
		c.logg.Info(logCtx, "notification already sent")
		return nil
	}

	result, err := c.sender.Send(ctx, email.SendRequest{
		To:      []string{msg.recipient},
		Subject: msg.subject,
		HTML:    msg.html,
	})
	if err != nil {
		if delErr := c.guard.Release(ctx, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency key", delErr)
		}
		return fmt.Errorf("send %s email: %w", msg.kind, err)
	}
	c.metrics.IncNotified(string(eventType))

	sentAt := result.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}
	record := &models.Notification{
		EventID:           eventID,
		EventType:         eventType,
		Type:              msg.kind,
		Recipient:         msg.recipient,
		Subject:           msg.subject,
		ProviderMessageID: result.MessageID,
		SentAt:            sentAt,
	}
	if err := c.repo.Create(ctx, record); err != nil {
		// the email is out; a missing log row must not trigger a resend
		c.logg.Warn(logCtx, "failed to record notification: "+err.Error())
	}
	c.logg.Info(c.logg.WithField(logCtx, "notification_type", msg.kind), "notification sent")
	return nil
}

func compose(kind enums.NotificationType, envelope outbox.PayloadEnvelope) (message, error) {
	switch kind {
	case enums.NotificationTypePasswordReset:
		var payload payloads.PasswordResetRequestedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return message{}, fmt.Errorf("%w: decode payload: %v", ErrMalformed, err)
		}
		if strings.TrimSpace(payload.ResetURL) == "" {
			return message{}, fmt.Errorf("%w: reset url missing", ErrMalformed)
		}
		subject, html, err := email.RenderPasswordReset(email.PasswordResetData{
			FirstName: firstName(payload.FullName),
			ResetURL:  payload.ResetURL,
			ValidFor:  validFor(envelope.OccurredAt, payload.ExpiresAt),
		})
		if err != nil {
			return message{}, err
		}
		return newMessage(enums.NotificationTypePasswordReset, payload.Email, subject, html)
	case enums.NotificationTypeWelcome:
		var payload payloads.AccountCreatedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return message{}, fmt.Errorf("%w: decode payload: %v", ErrMalformed, err)
		}
		subject, html, err := email.RenderWelcome(email.WelcomeData{
			FirstName: firstName(payload.FullName),
			Email:     payload.Email,
		})
		if err != nil {
			return message{}, err
		}
		return newMessage(enums.NotificationTypeWelcome, payload.Email, subject, html)
	default:
		return message{}, fmt.Errorf("%w: no template for %s", ErrMalformed, kind)
	}
}

func newMessage(kind enums.NotificationType, recipient, subject, html string) (message, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return message{}, fmt.Errorf("%w: recipient missing", ErrMalformed)
	}
	return message{kind: kind, recipient: recipient, subject: subject, html: html}, nil
}

func firstName(fullName string) string {
	if fields := strings.Fields(fullName); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func validFor(issued, expires time.Time) string {
	if issued.IsZero() || expires.IsZero() || !expires.After(issued) {
		return "24 hours"
	}
	d := expires.Sub(issued)
	if d < time.Hour {
		minutes := int(d.Round(time.Minute).Minutes())
		if minutes <= 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := int(d.Round(time.Hour).Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
