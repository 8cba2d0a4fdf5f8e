package migrate

import (
	"context"
	"fmt"

	"github.com/nightshift/inventory-backend/pkg/config"
	"github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot when the env is dev and
// NIGHTSHIFT_AUTO_MIGRATE is set. Deployed envs run cmd/migrate instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	source := Source(DefaultDir)
	if err := ValidateFS(source); err != nil {
		return err
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, cfg.DB.Driver, source, logg)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "trigger": "auto_migrate"})
	logg.Info(ctx, "applying migrations")
	if err := runner.Up(ctx); err != nil {
		return err
	}
	logg.Info(ctx, "migrations applied")
	return nil
}
