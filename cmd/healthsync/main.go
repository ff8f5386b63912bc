package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthsync-ai/cli/config"
	"github.com/healthsync-ai/cli/internal/app"
	"github.com/healthsync-ai/cli/internal/logging"
	"github.com/healthsync-ai/cli/internal/metrics"
	"github.com/healthsync-ai/cli/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "healthsync",
		Short:         "Terminal client for the HealthSync health data backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}
	rootCmd.PersistentFlags().String("api-url", "", "Backend base URL (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(tuiCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(insightsCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// The failed action already printed its status line.
		if !errors.Is(err, errActionFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// env is what every subcommand needs: config, a logger and the app
type env struct {
	cfg    *config.Config
	log    zerolog.Logger
	app    *app.App
	closer io.Closer
}

func (e *env) Close() {
	if e.app != nil {
		if err := e.app.Close(); err != nil {
			e.log.Warn().Err(err).Msg("failed to close session store")
		}
	}
	e.closer.Close()
}

// setup loads configuration and builds the app. The TUI logs to a file so
// log lines do not tear the screen; subcommands log to stderr.
func setup(cmd *cobra.Command, toFile bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}

	opts := logging.Options{Level: cfg.Logging.Level, Console: true}
	if toFile {
		opts = logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}
	}
	logger, closer, err := logging.New(opts)
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("error initializing app: %w", err)
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(cmd.Context(), cfg.Metrics.Addr); err != nil {
				logger.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics listener stopped")
			}
		}()
	}

	return &env{cfg: cfg, log: logger, app: a, closer: closer}, nil
}

func runTUI(cmd *cobra.Command) error {
	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	e.log.Info().Str("api", e.cfg.API.BaseURL).Msg("starting tui")
	return tui.Run(cmd.Context(), e.app, e.log)
}

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive terminal UI (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}
}
