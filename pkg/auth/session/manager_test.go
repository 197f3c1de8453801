package session_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/pkg/auth/session"
	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	pkgredis "github.com/krishnaroyalclub/krc-backend/pkg/redis"
	"github.com/krishnaroyalclub/krc-backend/pkg/redis/redistest"
)

var testJWT = config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60 * 24}

func newManager(t *testing.T) (*session.Manager, *pkgredis.Client) {
	t.Helper()
	store, _ := redistest.Open(t)
	manager, err := session.NewManager(store, testJWT)
	require.NoError(t, err)
	return manager, store
}

func storedToken(t *testing.T, store *pkgredis.Client, accessID string) string {
	t.Helper()
	raw, err := store.Get(context.Background(), store.AccessSessionKey(accessID))
	require.NoError(t, err)
	var stored struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	return stored.RefreshToken
}

func TestGenerateStoresSession(t *testing.T) {
	manager, store := newManager(t)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-1", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, token, storedToken(t, store, "access-1"))

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRotateConsumesOldSession(t *testing.T) {
	manager, store := newManager(t)
	ctx := context.Background()
	accountID := uuid.New()

	token, err := manager.Generate(ctx, "access-1", accountID)
	require.NoError(t, err)

	_, _, _, err = manager.Rotate(ctx, "access-1", "wrong")
	require.ErrorIs(t, err, session.ErrInvalidRefreshToken)

	newAccessID, newToken, gotAccount, err := manager.Rotate(ctx, "access-1", token)
	require.NoError(t, err)
	assert.Equal(t, accountID, gotAccount)
	assert.NotEqual(t, "access-1", newAccessID)
	assert.Equal(t, newToken, storedToken(t, store, newAccessID))

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, _, err = manager.Rotate(ctx, "access-1", token)
	require.ErrorIs(t, err, session.ErrInvalidRefreshToken)
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-1", uuid.New())
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		winners  atomic.Int32
		rejected atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, err := manager.Rotate(ctx, "access-1", token)
			switch {
			case err == nil:
				winners.Add(1)
			case assert.ErrorIs(t, err, session.ErrInvalidRefreshToken):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load())
	assert.EqualValues(t, 7, rejected.Load())
}

func TestRotateRejectsBlankAndCorruptInput(t *testing.T) {
	manager, store := newManager(t)
	ctx := context.Background()

	_, _, _, err := manager.Rotate(ctx, "", "token")
	require.ErrorIs(t, err, session.ErrInvalidRefreshToken)
	_, _, _, err = manager.Rotate(ctx, "access-1", " ")
	require.ErrorIs(t, err, session.ErrInvalidRefreshToken)

	require.NoError(t, store.Set(ctx, store.AccessSessionKey("corrupt"), "{not json", time.Hour))
	_, _, _, err = manager.Rotate(ctx, "corrupt", "token")
	require.ErrorIs(t, err, session.ErrInvalidRefreshToken)
}

func TestSessionExpires(t *testing.T) {
	store, server := redistest.Open(t)
	manager, err := session.NewManager(store, testJWT)
	require.NoError(t, err)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-1", uuid.New())
	require.NoError(t, err)

	server.FastForward(testJWT.RefreshTokenTTL() + time.Second)

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, _, _, err = manager.Rotate(ctx, "access-1", token)
	require.ErrorIs(t, err, session.ErrInvalidRefreshToken)
}

func TestRevoke(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	_, err := manager.Generate(ctx, "access-1", uuid.New())
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, "access-1"))
	require.NoError(t, manager.Revoke(ctx, "access-1"))

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Error(t, manager.Revoke(ctx, ""))
}

func TestGenerateValidates(t *testing.T) {
	manager, _ := newManager(t)
	_, err := manager.Generate(context.Background(), "", uuid.New())
	require.Error(t, err)
	_, err = manager.Generate(context.Background(), "a", uuid.Nil)
	require.Error(t, err)
}

func TestNewManagerValidates(t *testing.T) {
	store, _ := redistest.Open(t)

	_, err := session.NewManager(nil, testJWT)
	require.Error(t, err)
	_, err = session.NewManager(store, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	require.Error(t, err)
	_, err = session.NewManager(store, config.JWTConfig{ExpirationMinutes: 60})
	require.Error(t, err)
}
