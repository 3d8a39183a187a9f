package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/beaconchat/beacon-server/internal/app"
	"github.com/beaconchat/beacon-server/internal/config"
	"github.com/beaconchat/beacon-server/internal/log"
)

func main() {
	var (
		configPath        string
		addr              string
		logLevel          string
		databasePath      string
		readHeaderTimeout time.Duration
		shutdownTimeout   time.Duration
	)

	root := &cobra.Command{
		Use:          "beacon-server",
		Short:        "Presence and call-signaling relay server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := config.Config{
				Addr:              addr,
				LogLevel:          logLevel,
				DatabasePath:      databasePath,
				ReadHeaderTimeout: readHeaderTimeout,
				ShutdownTimeout:   shutdownTimeout,
			}
			return run(cmd.Context(), configPath, overrides)
		},
	}

	flags := root.Flags()
	flags.StringVar(&configPath, "config", "", "path to config file")
	flags.StringVar(&addr, "addr", "", "HTTP listen address")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&databasePath, "db", "", "path to the presence database")
	flags.DurationVar(&readHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	flags.DurationVar(&shutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, overrides config.Config) error {
	bootLogger := log.New(overrides.LogLevel)

	cfg, resolvedPath, err := config.Load(bootLogger, configPath)
	if err != nil {
		bootLogger.Error().Err(err).Msg("failed to load config")
		return err
	}
	cfg.UpdateFrom(overrides)

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", resolvedPath).Str("addr", cfg.Addr).Msg("starting beacon server")

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		return err
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
