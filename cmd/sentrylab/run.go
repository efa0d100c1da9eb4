package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/steveyegge/sentrylab/internal/schedule"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the scheduler (the default command)",
	Long: `Runs one sync cycle immediately, then one at each schedule.times entry
(default 09:00, 12:00 and 18:00 in schedule.timezone) until interrupted.`,
	RunE: runService,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single sync cycle and exit",
	RunE:  runOnce,
}

var dryRun bool

func init() {
	onceCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the GitLab issues that would be created without creating them or touching state")
	rootCmd.AddCommand(runCmd, onceCmd)
}

func runService(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	times, err := schedule.ParseTimes(settings.Schedule.Times)
	if err != nil {
		return err
	}
	overlap, err := schedule.ParseOverlapPolicy(settings.Schedule.Overlap)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, settings, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := schedule.New(schedule.Config{
		Times:      times,
		Location:   a.location,
		Overlap:    overlap,
		RunAtStart: settings.Schedule.RunAtStart,
	}, func(ctx context.Context) error {
		a.syncer.RunCycle(ctx)
		return nil
	}, logger)

	return sched.Run(ctx)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), settings, logger, dryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.syncer.RunCycle(cmd.Context())
	switch {
	case stats.FetchFailed:
		return errors.New("sync cycle failed: could not fetch sentry issues")
	case stats.Interrupted:
		return cmd.Context().Err()
	}
	return nil
}
