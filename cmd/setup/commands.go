package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nebula/internal/platform/config"
	"nebula/internal/platform/database"
	"nebula/internal/platform/logger"
	"nebula/internal/seeder"
	"nebula/migrations"
)

// setup holds what every subcommand needs once flags are parsed.
type setup struct {
	v      *viper.Viper
	cfg    config.Server
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	return (&setup{v: config.NewViper()}).command()
}

func (s *setup) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "nebula-setup",
		Short: "Prepare a nebula database",
		Long: `nebula-setup creates the database schema and applies the site settings:
the default template, overrides from the settings directory, classification
schemes and the admin account.

Without a subcommand both steps run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s.cfg = config.FromViper(s.v)
			s.logger = logger.New(s.cfg.LogLevel)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withDB(cmd, func(db *database.Pool) error {
				if err := s.schema(cmd, db); err != nil {
					return err
				}
				return s.settings(cmd, db)
			})
		},
	}

	flags := root.PersistentFlags()
	flags.String("database-url", "", "Postgres connection URL (env NEBULA_DATABASE_URL)")
	flags.String("settings-dir", "", "directory with YAML settings overrides (env NEBULA_SETTINGS_DIR)")
	flags.String("classifications-url", "", "classification dump to import (env NEBULA_CLASSIFICATIONS_URL)")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	for key, flag := range map[string]string{
		"database.url":        "database-url",
		"settings_dir":        "settings-dir",
		"classifications_url": "classifications-url",
		"log_level":           "log-level",
	} {
		if err := s.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "schema",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return s.withDB(cmd, func(db *database.Pool) error { return s.schema(cmd, db) })
			},
		},
		&cobra.Command{
			Use:   "settings",
			Short: "Apply site settings",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return s.withDB(cmd, func(db *database.Pool) error { return s.settings(cmd, db) })
			},
		},
	)
	return root
}

func (s *setup) withDB(cmd *cobra.Command, fn func(*database.Pool) error) error {
	db, err := database.New(cmd.Context(), s.cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func (s *setup) schema(cmd *cobra.Command, db database.DB) error {
	s.logger.Info("applying schema")
	return migrations.Apply(cmd.Context(), db)
}

func (s *setup) settings(cmd *cobra.Command, db database.DB) error {
	tmpl := seeder.Defaults()
	if err := seeder.LoadOverrides(tmpl, s.cfg.SettingsDir, s.logger); err != nil {
		return err
	}
	return seeder.New(db, s.logger, seeder.Options{
		SiteName:           s.cfg.SiteName,
		RedisURL:           s.cfg.Redis.URL,
		ClassificationsURL: s.cfg.ClassificationsURL,
		AdminPassword:      s.cfg.AdminPassword,
	}).Seed(cmd.Context(), tmpl)
}
