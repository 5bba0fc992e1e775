package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"grounded-meal-planner/internal/app"
	"grounded-meal-planner/internal/config"
	"grounded-meal-planner/internal/logger"
)

var (
	envFile     string
	logMode     string
	metricsFile string

	cfg         *config.Config
	log         *logger.Logger
	application *app.App
	stopSignals context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "meal-planner",
	Short: "Grounded LLM meal plan generator",
	Long: `meal-planner builds multi-day meal plans from a recipe index. The LLM
chooses among real recipes retrieved for each meal type, and every choice is
checked against what was retrieved.

Example usage:
  meal-planner seed recipes.json             # Load recipe documents into the index
  meal-planner plan --days 3 --diet vegan    # Generate a 3-day vegan plan
  meal-planner search lunch --diet vegan     # Inspect the candidates for one meal type
  meal-planner clip https://example.com/r/1  # Import a recipe page
  meal-planner ingest                        # Import recipe posts from Ghost
  meal-planner stats                         # Show LLM usage`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "", "log mode, development or production (overrides LOG_MODE)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics of this run to a textfile (overrides METRICS_TEXTFILE)")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	var err error
	cfg, err = config.NewFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logMode != "" {
		cfg.LogMode = logMode
	}
	if metricsFile != "" {
		cfg.MetricsTextfile = metricsFile
	}

	log, err = logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	stopSignals = stop
	cmd.SetContext(ctx)

	application, err = app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return nil
}

// teardown flushes metrics and releases the application. It runs after every
// command, including failed ones.
func teardown() error {
	if stopSignals != nil {
		defer stopSignals()
	}
	if log != nil {
		defer log.Sync()
	}
	if application == nil {
		return nil
	}
	if cfg.MetricsTextfile != "" {
		if err := application.WriteMetricsTextfile(cfg.MetricsTextfile); err != nil {
			log.Warn("failed to write metrics", "path", cfg.MetricsTextfile, "error", err)
		}
	}
	return application.Close()
}
