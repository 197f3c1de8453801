package migrate

import (
	"context"
	"fmt"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. sqlite databases are migrated from the models instead of
// the Postgres SQL files.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	meta := map[string]any{"env": cfg.App.Env, "driver": client.Driver()}
	ctx = logg.WithFields(ctx, meta)

	if client.Driver() == config.DBDriverSQLite {
		logg.Info(ctx, "running sqlite auto-migrate (dev auto-run)")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
		for _, stmt := range db.SQLiteIndexes {
			if err := client.DB().WithContext(ctx).Exec(stmt).Error; err != nil {
				return fmt.Errorf("sqlite index: %w", err)
			}
		}
		logg.Info(ctx, "sqlite auto-migrate completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running embedded goose migrations (dev auto-run)")
	if err := Command(ctx, sqlDB, Migrations(), "up", logg); err != nil {
		return err
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}
