package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/auction-archive/pkg/config"
	"github.com/angelmondragon/auction-archive/pkg/db"
	"github.com/angelmondragon/auction-archive/pkg/logger"
)

// MaybeRun applies pending migrations at boot when auto-migrate is enabled.
// Migrations only ever add tables and nullable columns, so running them on
// start never discards stored artworks.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.DB.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})
	logg.Info(ctx, "running goose migrations")

	if err := Run(ctx, sqlDB, client.Dialect(), "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	version, err := Version(ctx, sqlDB, client.Dialect())
	if err == nil {
		ctx = logg.WithField(ctx, "schema_version", version)
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}
