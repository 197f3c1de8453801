package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev},
		DB: config.DBConfig{
			Driver: config.DBDriverSQLite,
			DSN:    "file:bootstrap_" + uuid.NewString() + "?mode=memory&cache=shared",
		},
		FeatureFlags: config.FeatureFlagsConfig{UseSQLite: true, AutoMigrate: true},
	}
}

func TestOpenRunsDevMigrationsAndRedis(t *testing.T) {
	server := miniredis.RunT(t)
	cfg := sqliteConfig(t)
	cfg.Redis = config.RedisConfig{URL: "redis://" + server.Addr() + "/0"}

	rt, err := open(context.Background(), cfg, logger.Nop(), Options{Service: "test", WithRedis: true})
	require.NoError(t, err)

	assert.True(t, rt.DB.DB().Migrator().HasTable(&models.OutboxDLQ{}))
	require.NotNil(t, rt.Redis)
	require.NoError(t, rt.Redis.Ping(context.Background()))

	require.NoError(t, rt.Close())
	assert.Error(t, rt.DB.Ping(context.Background()))
}

func TestOpenSkipsDevMigrations(t *testing.T) {
	rt, err := open(context.Background(), sqliteConfig(t), logger.Nop(), Options{Service: "migrate", SkipDevMigrations: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.False(t, rt.DB.DB().Migrator().HasTable(&models.OutboxDLQ{}))
	assert.Nil(t, rt.Redis)
}

func TestOpenClosesDatabaseWhenRedisFails(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Redis = config.RedisConfig{URL: "http://not-redis"}

	rt, err := open(context.Background(), cfg, logger.Nop(), Options{Service: "test", WithRedis: true})
	require.ErrorContains(t, err, "open redis")
	assert.Empty(t, rt.closers)
}

func TestCloseRunsInReverseAndJoinsErrors(t *testing.T) {
	rt := &Runtime{}
	var order []string
	rt.OnClose("first", func() error {
		order = append(order, "first")
		return errors.New("boom")
	})
	rt.OnClose("second", func() error {
		order = append(order, "second")
		return nil
	})
	rt.OnClose("third", func() error {
		order = append(order, "third")
		return errors.New("bang")
	})

	err := rt.Close()
	assert.Equal(t, []string{"third", "second", "first"}, order)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close third: bang")
	assert.Contains(t, err.Error(), "close first: boom")

	require.NoError(t, rt.Close())
	assert.Len(t, order, 3)
}
