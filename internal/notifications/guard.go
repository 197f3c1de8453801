package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	pkgredis "github.com/krishnaroyalclub/krc-backend/pkg/redis"
)

const guardScope = "notifications-email"

// SendGuard remembers in Redis which events already produced an email, so a
// relay retry after a failed publish does not mail the guest twice.
type SendGuard struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
}

func NewSendGuard(store pkgredis.IdempotencyStore, ttl time.Duration) (*SendGuard, error) {
	if store == nil {
		return nil, errors.New("send guard needs a store")
	}
	if ttl <= 0 {
		return nil, errors.New("send guard ttl must be positive")
	}
	return &SendGuard{store: store, ttl: ttl}, nil
}

// Claim returns true when the caller is the first to handle eventID and
// should send the email.
func (g *SendGuard) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("event id is required")
	}
	return g.store.SetNX(ctx, g.key(eventID), time.Now().UTC().Format(time.RFC3339), g.ttl)
}

// Release forgets a claim after the send failed.
func (g *SendGuard) Release(ctx context.Context, eventID uuid.UUID) error {
	return g.store.Del(ctx, g.key(eventID))
}

func (g *SendGuard) key(eventID uuid.UUID) string {
	return g.store.IdempotencyKey(guardScope, eventID.String())
}
