// sentrylab mirrors Sentry issues into a GitLab project on a daily schedule.
//
// Usage:
//
//	sentrylab [run]          start the scheduler (one cycle at startup, then at each configured time)
//	sentrylab once           run a single sync cycle and exit
//	sentrylab config         print the effective configuration
//	sentrylab state list     show mirrored issues
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/sentrylab/internal/config"
	"github.com/steveyegge/sentrylab/internal/logging"
)

var (
	// Version is the current version of sentrylab (overridden by ldflags at build time)
	Version = "0.1.0"
	// Build can be set via ldflags at compile time
	Build = "dev"
)

var (
	configFile string
	logLevel   string
	logFormat  string

	settings *config.Settings
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "sentrylab",
	Short:         "Mirror Sentry issues into GitLab",
	Long:          `Polls a Sentry project at fixed times of day and opens a GitLab issue for every Sentry issue that is new or has new events since it was last mirrored.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	RunE: runService,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./sentrylab.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: auto, text, json (overrides log.format)")
	rootCmd.Version = fmt.Sprintf("%s (%s)", Version, Build)
}

// setup loads configuration and builds the process logger.
func setup() error {
	if err := config.Initialize(configFile); err != nil {
		return err
	}
	if logLevel != "" {
		config.Set("log.level", logLevel)
	}
	if logFormat != "" {
		config.Set("log.format", logFormat)
	}

	s, err := config.Load()
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return err
	}
	settings = s
	logger = logging.New(os.Stderr, level, s.Log.Format)
	slog.SetDefault(logger)
	if used := config.ConfigFileUsed(); used != "" {
		logger.Debug("loaded config file", "path", used)
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
