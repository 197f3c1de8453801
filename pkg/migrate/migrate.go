package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the SQL migrations compiled into the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Commands accepted by Command.
var Commands = []string{"up", "up-by-one", "down", "redo", "status"}

func provider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		fsys = Migrations()
	}
	// SQL migrations target Postgres; sqlite is migrated from the models.
	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// Command applies a goose command and logs every migration it touched.
func Command(ctx context.Context, db *sql.DB, fsys fs.FS, command string, logg *logger.Logger) error {
	p, err := provider(db, fsys)
	if err != nil {
		return err
	}

	var results []*goose.MigrationResult
	switch command {
	case "up":
		results, err = p.Up(ctx)
	case "up-by-one":
		var res *goose.MigrationResult
		res, err = p.UpByOne(ctx)
		results = appendResult(results, res)
	case "down":
		var res *goose.MigrationResult
		res, err = p.Down(ctx)
		results = appendResult(results, res)
	case "redo":
		var res *goose.MigrationResult
		if res, err = p.Down(ctx); err == nil {
			results = appendResult(results, res)
			res, err = p.UpByOne(ctx)
			results = appendResult(results, res)
		}
	case "status":
		return logStatus(ctx, p, logg)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}

	logResults(ctx, logg, results)
	if errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// ToVersion moves the schema up or down until target is the current version.
func ToVersion(ctx context.Context, db *sql.DB, fsys fs.FS, target string, logg *logger.Logger) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	p, err := provider(db, fsys)
	if err != nil {
		return err
	}
	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil
	case current < version:
		results, err = p.UpTo(ctx, version)
	default:
		results, err = p.DownTo(ctx, version)
	}
	logResults(ctx, logg, results)
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, version, err)
	}
	return nil
}

func appendResult(results []*goose.MigrationResult, res *goose.MigrationResult) []*goose.MigrationResult {
	if res == nil {
		return results
	}
	return append(results, res)
}

func logResults(ctx context.Context, logg *logger.Logger, results []*goose.MigrationResult) {
	if logg == nil {
		return
	}
	for _, res := range results {
		fields := map[string]any{
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}
		if res.Source != nil {
			fields["version"] = res.Source.Version
			fields["file"] = res.Source.Path
		}
		logg.Info(logg.WithFields(ctx, fields), "migration applied")
	}
}

func logStatus(ctx context.Context, p *goose.Provider, logg *logger.Logger) error {
	statuses, err := p.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	if logg == nil {
		return nil
	}
	for _, st := range statuses {
		fields := map[string]any{"state": string(st.State)}
		if st.Source != nil {
			fields["version"] = st.Source.Version
			fields["file"] = st.Source.Path
		}
		if !st.AppliedAt.IsZero() {
			fields["applied_at"] = st.AppliedAt
		}
		logg.Info(logg.WithFields(ctx, fields), "migration status")
	}
	return nil
}
