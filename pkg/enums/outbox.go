package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType names the record an outbox event is about.
type OutboxAggregateType string

const (
	AggregateAccount    OutboxAggregateType = "account"
	AggregateOrder      OutboxAggregateType = "order"
	AggregateOnboarding OutboxAggregateType = "onboarding"
)

var aggregateTypes = []OutboxAggregateType{AggregateAccount, AggregateOrder, AggregateOnboarding}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

// OutboxEventType names a domain event.
type OutboxEventType string

const (
	EventAccountCreated         OutboxEventType = "account_created"
	EventPasswordResetRequested OutboxEventType = "password_reset_requested"
	EventBookingCreated         OutboxEventType = "booking_created"
	EventOrderSubmitted         OutboxEventType = "order_submitted"
	EventOrderCancelled         OutboxEventType = "order_cancelled"
	EventOnboardingSubmitted    OutboxEventType = "onboarding_submitted"
	EventOnboardingCancelled    OutboxEventType = "onboarding_cancelled"
)

var eventTypes = []OutboxEventType{
	EventAccountCreated,
	EventPasswordResetRequested,
	EventBookingCreated,
	EventOrderSubmitted,
	EventOrderCancelled,
	EventOnboardingSubmitted,
	EventOnboardingCancelled,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// NotificationType names the email a notification event produces.
type NotificationType string

const (
	NotificationTypePasswordReset NotificationType = "password_reset"
	NotificationTypeWelcome       NotificationType = "welcome"
)

var notifications = map[OutboxEventType]NotificationType{
	EventPasswordResetRequested: NotificationTypePasswordReset,
	EventAccountCreated:         NotificationTypeWelcome,
}

// Notification returns the email sent for e. Events without one are only
// published to the domain topic.
func (e OutboxEventType) Notification() (NotificationType, bool) {
	n, ok := notifications[e]
	return n, ok
}

func (e OutboxEventType) IsNotification() bool {
	_, ok := notifications[e]
	return ok
}

// OutboxDLQErrorReason says why an event was dead-lettered.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: every delivery attempt failed.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: the row cannot be decoded or routed.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUndeliverable: the email has no recipient or link.
	OutboxDLQReasonUndeliverable OutboxDLQErrorReason = "undeliverable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUndeliverable:
		return true
	}
	return false
}
