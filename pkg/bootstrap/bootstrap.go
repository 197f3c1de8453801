// Package bootstrap opens the resources shared by every binary: config,
// logger, database and optionally Redis, and tears them down in reverse.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/migrate"
	"github.com/krishnaroyalclub/krc-backend/pkg/redis"
)

// Options selects what Start opens.
type Options struct {
	Service string
	// SkipDevMigrations leaves schema changes to the caller.
	SkipDevMigrations bool
	WithRedis         bool
}

// Runtime is the set of opened resources. Redis is nil unless requested.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// LoadConfig reads .env when present, parses the environment and returns a
// logger configured from it.
func LoadConfig(service string) (*config.Config, *logger.Logger, error) {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, logg, err
	}
	return cfg, logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	}), nil
}

// Start loads config and opens the database, then Redis when asked. On
// failure everything opened so far is closed again.
func Start(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, logg, err := LoadConfig(opts.Service)
	if err != nil {
		return &Runtime{Logger: logg}, fmt.Errorf("load config: %w", err)
	}
	return open(ctx, cfg, logg, opts)
}

func open(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts Options) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logg}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return rt, fmt.Errorf("open database: %w", err)
	}
	rt.DB = dbClient
	rt.OnClose("database", dbClient.Close)

	if !opts.SkipDevMigrations {
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return rt, multierr.Append(fmt.Errorf("dev migrations: %w", err), rt.Close())
		}
	}

	if opts.WithRedis {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return rt, multierr.Append(fmt.Errorf("open redis: %w", err), rt.Close())
		}
		rt.Redis = redisClient
		rt.OnClose("redis", redisClient.Close)
	}
	return rt, nil
}

// OnClose registers fn to run on Close. Closers run last-registered first.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, namedCloser{name: name, close: fn})
}

// Close runs every registered closer once and returns their combined errors.
func (rt *Runtime) Close() error {
	var err error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if closeErr := c.close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", c.name, closeErr))
		}
	}
	rt.closers = nil
	return err
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Main runs fn against a started Runtime and exits the process with a
// status reflecting the outcome. Cancellation by signal counts as success.
func Main(opts Options, fn func(ctx context.Context, rt *Runtime) error) {
	os.Exit(run(opts, fn))
}

func run(opts Options, fn func(ctx context.Context, rt *Runtime) error) int {
	ctx, stop := SignalContext()
	defer stop()

	rt, err := Start(ctx, opts)
	if err != nil {
		rt.Logger.Error(ctx, opts.Service+" failed to start", err)
		return 1
	}
	ctx = rt.Logger.WithField(ctx, "env", rt.Config.App.Env)

	code := 0
	if err := fn(ctx, rt); err != nil && !errors.Is(err, context.Canceled) {
		rt.Logger.Error(ctx, opts.Service+" stopped unexpectedly", err)
		code = 1
	}
	if err := rt.Close(); err != nil {
		rt.Logger.Error(context.WithoutCancel(ctx), "shutdown left resources open", err)
	}
	if code == 0 {
		rt.Logger.Info(ctx, opts.Service+" shut down gracefully")
	}
	return code
}
