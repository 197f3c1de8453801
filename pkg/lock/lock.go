// Package lock provides Redis-backed mutual exclusion keyed by an arbitrary
// string, used to serialize work per customer across API instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTTL          = 30 * time.Second
	defaultPollInterval = 50 * time.Millisecond
)

// ErrNotAcquired is returned when a lock could not be obtained before the wait elapsed.
var ErrNotAcquired = errors.New("lock not acquired")

// Store is the Redis surface a lock needs. DelIfEquals must compare and
// delete atomically.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is one lease on key. The owner token written on acquire makes a
// release by anyone else, or after the lease expired and was taken over, a
// no-op.
type RedisLock struct {
	store Store
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store Store, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Key() string {
	return l.key
}

// Acquire makes one attempt to take the lease.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// AcquireWithin retries Acquire every interval until it succeeds, wait
// elapses or ctx is done.
func (l *RedisLock) AcquireWithin(ctx context.Context, wait, interval time.Duration) (bool, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := l.Acquire(ctx)
		if err != nil || ok {
			return ok, err
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release gives the lease back if this lock still holds it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.DelIfEquals(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

// Unlock releases a lock obtained from a Locker.
type Unlock func(ctx context.Context) error

// Locker hands out exclusive locks for named resources.
type Locker interface {
	Lock(ctx context.Context, name string) (Unlock, error)
}

// KeyFunc maps a resource name to a storage key.
type KeyFunc func(name string) string

// RedisLocker creates a RedisLock per call.
type RedisLocker struct {
	store    Store
	keyFn    KeyFunc
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

// NewRedisLocker builds a Locker whose locks expire after ttl and which waits
// up to wait for a held lock to be released.
func NewRedisLocker(store Store, keyFn KeyFunc, ttl, wait time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for locker")
	}
	if keyFn == nil {
		return nil, errors.New("key func required for locker")
	}
	return &RedisLocker{store: store, keyFn: keyFn, ttl: ttl, wait: wait, interval: defaultPollInterval}, nil
}

// Lock acquires the lock for name or returns ErrNotAcquired.
func (l *RedisLocker) Lock(ctx context.Context, name string) (Unlock, error) {
	held, err := NewRedisLock(l.store, l.keyFn(name), l.ttl)
	if err != nil {
		return nil, err
	}
	ok, err := held.AcquireWithin(ctx, l.wait, l.interval)
	switch {
	case err != nil:
		return nil, err
	case !ok:
		return nil, ErrNotAcquired
	}
	return held.Release, nil
}

// NopLocker grants every lock immediately.
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (Unlock, error) {
	return func(context.Context) error { return nil }, nil
}
