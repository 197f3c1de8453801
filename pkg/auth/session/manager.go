package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	errAccessIDRequired = errors.New("access id is required")
)

// Store is the key-value surface holding one session per access id.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs to reject revoked tokens.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type entry struct {
	AccountID    uuid.UUID `json:"account_id"`
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Manager issues refresh tokens and keeps them keyed by the access token jti.
type Manager struct {
	store Store
	ttl   time.Duration
	clock func() time.Time
}

// NewManager requires the refresh TTL to outlive the access token.
func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case ttl <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case ttl <= access:
		return nil, fmt.Errorf("refresh token ttl %s must exceed access token ttl %s", ttl, access)
	}
	return &Manager{store: store, ttl: ttl, clock: time.Now}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate stores a new session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, accountID uuid.UUID) (string, error) {
	if blank(accessID) {
		return "", errAccessIDRequired
	}
	if accountID == uuid.Nil {
		return "", errors.New("account id is required")
	}
	return m.open(ctx, accessID, accountID)
}

// Rotate exchanges a refresh token for a new access id and refresh token.
// The old session is consumed before the new one is written, so a token can
// be rotated at most once even under concurrent requests.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, uuid.UUID, error) {
	if blank(oldAccessID) || blank(provided) {
		return "", "", uuid.Nil, ErrInvalidRefreshToken
	}

	key := m.store.AccessSessionKey(oldAccessID)
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		return "", "", uuid.Nil, notFound(err)
	}
	var current entry
	if json.Unmarshal([]byte(raw), &current) != nil {
		return "", "", uuid.Nil, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(current.RefreshToken), []byte(provided)) != 1 {
		return "", "", uuid.Nil, ErrInvalidRefreshToken
	}

	claimed, err := m.store.DelIfEquals(ctx, key, raw)
	if err != nil {
		return "", "", uuid.Nil, err
	}
	if !claimed {
		return "", "", uuid.Nil, ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.open(ctx, accessID, current.AccountID)
	if err != nil {
		return "", "", uuid.Nil, err
	}
	return accessID, token, current.AccountID, nil
}

// Revoke drops the session of accessID. Revoking a missing session is not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errAccessIDRequired
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether accessID still has a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errAccessIDRequired
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redislib.Nil):
		return false, nil
	default:
		return false, err
	}
}

func (m *Manager) open(ctx context.Context, accessID string, accountID uuid.UUID) (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	value, err := json.Marshal(entry{AccountID: accountID, RefreshToken: token, IssuedAt: m.clock().UTC()})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(value), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func notFound(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrInvalidRefreshToken
	}
	return err
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
