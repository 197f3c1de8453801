package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// EnvelopeVersion is written into every new envelope.
const EnvelopeVersion = 1

// ActorRef identifies who produced the event. A nil actor means the request
// was anonymous (public booking, signup).
type ActorRef struct {
	AccountID uuid.UUID  `json:"accountId"`
	Role      enums.Role `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

var errEmptyData = errors.New("envelope data is empty")

// seal wraps data in a new envelope with a fresh event id.
func seal(data any, actor *ActorRef, occurredAt time.Time) (PayloadEnvelope, []byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("encode event data: %w", err)
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	env := PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Actor:      actor,
		Data:       body,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("encode envelope: %w", err)
	}
	return env, raw, nil
}

// OpenEnvelope decodes a stored envelope and decodes its data into target
// when target is not nil.
func OpenEnvelope(raw []byte, target any) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, errEmptyData
	}
	if target != nil {
		if err := json.Unmarshal(data, target); err != nil {
			return env, fmt.Errorf("decode envelope data: %w", err)
		}
	}
	return env, nil
}
