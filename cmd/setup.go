package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates config.toml from the template when missing, initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created %s\n", configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		return r.rollback(db)
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	applied, err := shared.AppliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	r.writePlain("✓ Database ready at %s (%d migrations applied)\n", r.config.Database.Path, len(applied))

	var missing []string
	if !r.config.Credentials.Spotify.Configured() {
		missing = append(missing, "credentials.spotify.client_id/client_secret (or SPOTIFY_ID/SPOTIFY_SECRET)")
	}
	if r.config.Credentials.LLM.APIKey == "" {
		missing = append(missing, "credentials.llm.api_key (or LLM_API_KEY)")
	}

	if len(missing) > 0 {
		r.writePlain("\nNext steps:\n")
		for i, m := range missing {
			r.writePlain("%d. Set %s in %s\n", i+1, m, configPath)
		}
		r.writePlain("%d. Run 'moodmix auth' to link your Spotify account\n", len(missing)+1)
		return nil
	}

	r.writePlain("\nNext step: run 'moodmix auth' to link your Spotify account\n")
	return nil
}

func (r *Runner) rollback(db *sql.DB) error {
	r.logger.Info("rolling back latest migration")
	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	applied, err := shared.AppliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	return r.writePlain("✓ Rolled back latest migration (%d still applied)\n", len(applied))
}
