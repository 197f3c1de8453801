// Package registry maps outbox event types to their topic and payload schema.
package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox"
	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published and whether it
// triggers an email.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	Notify        bool
	newPayload    func() any
}

// ResolvedEvent is an outbox row with its envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventID parses the envelope event id, falling back to uuid.Nil.
func (r *ResolvedEvent) EventID() uuid.UUID {
	if r == nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(r.Envelope.EventID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func entry[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Notify:        eventType.IsNotification(),
		newPayload:    func() any { return new(T) },
	}
}

// EventRegistry knows every event type the relay can deliver.
type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes every event to the domain topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}
	reg := &EventRegistry{byType: map[enums.OutboxEventType]EventDescriptor{}}
	for _, desc := range []EventDescriptor{
		entry[payloads.AccountCreatedEvent](enums.EventAccountCreated, enums.AggregateAccount),
		entry[payloads.PasswordResetRequestedEvent](enums.EventPasswordResetRequested, enums.AggregateAccount),
		entry[payloads.BookingCreatedEvent](enums.EventBookingCreated, enums.AggregateOrder),
		entry[payloads.OrderSubmittedEvent](enums.EventOrderSubmitted, enums.AggregateOrder),
		entry[payloads.OrderCancelledEvent](enums.EventOrderCancelled, enums.AggregateOrder),
		entry[payloads.OnboardingSubmittedEvent](enums.EventOnboardingSubmitted, enums.AggregateOnboarding),
		entry[payloads.OnboardingCancelledEvent](enums.EventOnboardingCancelled, enums.AggregateOnboarding),
	} {
		desc.Topic = cfg.DomainTopic
		reg.byType[desc.EventType] = desc
	}
	return reg, nil
}

// Descriptor returns the registered descriptor for an event type.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.byType[eventType]
	return desc, ok
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is permanent: the row will not decode on a later attempt.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.byType[event.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, Permanent(fmt.Errorf("%s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("missing aggregate_id"))
	}

	payload := desc.newPayload()
	env, err := outbox.OpenEnvelope(event.Payload, payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%s: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return "permanent: " + e.err.Error() }

func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as one that retrying cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err or anything it wraps was marked Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
