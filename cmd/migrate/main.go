package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/krishnaroyalclub/krc-backend/pkg/bootstrap"
	"github.com/krishnaroyalclub/krc-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: "+strings.Join(migrate.Commands, "|")+"|version|create|validate")
	flag.StringVar(&opts.dir, "dir", "", "read migrations from this directory instead of the embedded set")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if err := dispatch(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// dispatch runs create and validate offline; every other command needs the database.
func dispatch(opts options) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name, time.Now())
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		versions, err := migrate.Validate(source(opts.dir))
		if err != nil {
			return fmt.Errorf("migration validation failed: %w", err)
		}
		fmt.Printf("migration validation passed (%d files)\n", len(versions))
		return nil
	case "version":
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
	default:
		if !slices.Contains(migrate.Commands, opts.cmd) {
			return fmt.Errorf("unknown -cmd value: %s", opts.cmd)
		}
	}
	return apply(opts)
}

func apply(opts options) error {
	ctx := context.Background()
	rt, err := bootstrap.Start(ctx, bootstrap.Options{Service: "migrate", SkipDevMigrations: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Error(ctx, "failed to close database", err)
		}
	}()
	if rt.Config.FeatureFlags.UseSQLite {
		return errors.New("goose migrations target postgres; sqlite databases are migrated by the api with KRC_AUTO_MIGRATE")
	}

	sqlDB, err := rt.DB.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	ctx = rt.Logger.WithFields(ctx, map[string]any{"env": rt.Config.App.Env, "cmd": opts.cmd, "dir": opts.dir})
	rt.Logger.Info(ctx, "applying migrations")

	if opts.cmd == "version" {
		err = migrate.ToVersion(ctx, sqlDB, source(opts.dir), opts.version, rt.Logger)
	} else {
		err = migrate.Command(ctx, sqlDB, source(opts.dir), opts.cmd, rt.Logger)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", opts.cmd, err)
	}
	rt.Logger.Info(ctx, "migrations finished")
	return nil
}

func source(dir string) fs.FS {
	if dir == "" {
		return migrate.Migrations()
	}
	return os.DirFS(dir)
}
