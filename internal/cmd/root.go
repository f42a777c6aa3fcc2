package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mr1hm/quake-etl/internal/cache"
	"github.com/mr1hm/quake-etl/internal/config"
	"github.com/mr1hm/quake-etl/internal/logging"
	"github.com/mr1hm/quake-etl/internal/repository"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "quake-etl",
	Short: "Earthquake catalogue ETL and dashboard API",
	Long: `quake-etl pulls month-sized windows of the USGS earthquake catalogue,
flattens and normalizes every event, and appends the rows to a SQL table
that the dashboard API and the analytical queries read from.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}
		// stdout is kept for command output
		logging.SetupWriter(os.Stderr, cfg.Logging.Level)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default $LOG_LEVEL or info)")
	rootCmd.PersistentFlags().String("db-driver", "", "database driver: sqlite, mysql, postgres (default $DB_DRIVER)")
	rootCmd.PersistentFlags().String("dsn", "", "database DSN (default $DB_DSN)")
}

// applyFlags copies explicitly set flags over the environment config.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("db-driver") {
		cfg.DB.Driver, _ = flags.GetString("db-driver")
	}
	if flags.Changed("dsn") {
		cfg.DB.DSN, _ = flags.GetString("dsn")
	}
	if f := flags.Lookup("start-year"); f != nil && f.Changed {
		cfg.Feed.StartYear, _ = flags.GetInt("start-year")
	}
	if f := flags.Lookup("end-year"); f != nil && f.Changed {
		cfg.Feed.EndYear, _ = flags.GetInt("end-year")
	}
	if f := flags.Lookup("snapshot"); f != nil && f.Changed {
		cfg.Feed.SnapshotPath, _ = flags.GetString("snapshot")
	}
	if f := flags.Lookup("concurrency"); f != nil && f.Changed {
		cfg.Feed.Concurrency, _ = flags.GetInt("concurrency")
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func openStore(ctx context.Context) (*repository.Store, error) {
	return repository.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.BatchSize)
}

// openCache dials redis when REDIS_ADDR is set and falls back to no caching.
func openCache(ctx context.Context) (cache.Cache, func()) {
	if cfg.Cache.RedisAddr == "" {
		return cache.Noop{}, func() {}
	}
	rc, err := cache.Dial(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.TTL)
	if err != nil {
		slog.Warn("query cache disabled", logging.Error(err))
		return cache.Noop{}, func() {}
	}
	return rc, func() { rc.Close() }
}
