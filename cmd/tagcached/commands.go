package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-tagcache/internal/app"
	"github.com/goliatone/go-tagcache/internal/config"
	"github.com/goliatone/go-tagcache/internal/logging"
	"github.com/goliatone/go-tagcache/internal/seed"
	"github.com/goliatone/go-tagcache/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/uptrace/bun"
)

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "tagcached",
		Short:         "CRM dashboard API with tag based cache invalidation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "path to the YAML configuration file")
	addConfigFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCommand(&configPath),
		newMigrateCommand(&configPath),
		newSeedCommand(&configPath),
	)
	return root
}

// addConfigFlags registers the flags config.Load binds. The defaults shown
// in help match config.Defaults.
func addConfigFlags(fs *pflag.FlagSet) {
	d := config.Defaults()
	fs.String("addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("db-driver", d.Database.Driver, "database driver: sqlite or postgres")
	fs.String("dsn", d.Database.DSN, "database connection string")
	fs.String("backend", d.Cache.Backend, "cache backend")
	fs.String("consistency", d.Invalidation.Consistency, "invalidation consistency: local or broadcast")
	fs.String("nats-url", d.Invalidation.NATSURL, "NATS server used in broadcast mode")
	fs.String("log-level", d.Logging.Level, "log level: debug, info, warn or error")
	fs.String("log-format", d.Logging.Format, "log format: json or text")
}

func load(cmd *cobra.Command, path string) (*config.Config, error) {
	return config.Load(path, cmd.Flags())
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd, *configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Error("close failed", "error", err)
				}
			}()
			return a.Run(ctx)
		},
	}
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd, *configPath)
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), cfg, func(ctx context.Context, db *bun.DB) error {
				version, err := store.MigrationVersion(ctx, db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated to version %d\n", version)
				return nil
			})
		},
	}
}

func newSeedCommand(configPath *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, organizations and contacts from a YAML file",
		Long:  "Load users, organizations and contacts from a YAML file. Without --file the bundled demo data is loaded.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd, *configPath)
			if err != nil {
				return err
			}

			var f *seed.File
			if file != "" {
				f, err = seed.LoadFile(file)
			} else {
				f, err = seed.Demo()
			}
			if err != nil {
				return err
			}

			return withDB(cmd.Context(), cfg, func(ctx context.Context, db *bun.DB) error {
				sum, err := seed.Apply(ctx, store.New(db), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"seeded %d users, %d organizations, %d memberships, %d contacts, %d notes, %d tasks, %d favorites, %d webhooks\n",
					sum.Users, sum.Organizations, sum.Memberships, sum.Contacts, sum.Notes, sum.Tasks, sum.Favorites, sum.Webhooks)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file; defaults to the bundled demo data")
	return cmd
}

// withDB opens and migrates the configured database for the duration of fn.
func withDB(ctx context.Context, cfg *config.Config, fn func(ctx context.Context, db *bun.DB) error) error {
	db, err := store.Open(ctx, cfg.Database.StoreConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		return err
	}
	return fn(ctx, db)
}
