package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/amsctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded config template to the path of the global --config flag.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Wrote %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set api.base_url (or AMS_API_URL in .env)\n")
	r.writePlain("2. Run 'amsctl auth login --email you@example.com'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.database()
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", shared.ExpandHome(r.config.Database.Path))
	return r.writePlain("✓ Database ready (schema version %d)\n", version)
}
