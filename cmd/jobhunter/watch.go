package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ar3ac/jobhunter/internal/ingest"
	"github.com/ar3ac/jobhunter/internal/scheduler"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the profile searches on a cron schedule",
	Long:  "Run the batch immediately and then on every tick of the schedule; blocks until SIGINT/SIGTERM.",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron expression (overrides the profile's schedule)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(profilePath)
	if err != nil {
		fatal(logger, "failed to load profile", err)
	}
	spec := cfg.Schedule
	if watchSchedule != "" {
		spec = watchSchedule
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Validate the setup once up front so a broken profile fails fast.
	if _, cleanup, err := newBatchRunner(ctx, cfg, false, logger); err != nil {
		fatal(logger, "failed to set up batch", err)
	} else {
		cleanup()
	}

	job := batchJob(func(ctx context.Context) (*ingest.Batch, func(), error) {
		return newBatchRunner(ctx, cfg, false, logger)
	}, profileSearches(cfg))
	sched, err := scheduler.NewScheduler(spec, job, logger)
	if err != nil {
		fatal(logger, "invalid schedule", err)
	}

	if err := sched.Run(ctx); err != nil {
		fatal(logger, "scheduler error", err)
	}

	logger.Info("goodbye")
	return nil
}

// batchFactory builds a batch runner and the cleanup releasing its store and
// notifier.
type batchFactory func(ctx context.Context) (*ingest.Batch, func(), error)

// batchJob returns a scheduled job that acquires the store for each run and
// releases it when the run ends.
func batchJob(newBatch batchFactory, searches []ingest.Search) scheduler.Job {
	return func(ctx context.Context) error {
		batch, cleanup, err := newBatch(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		_, err = batch.Run(ctx, searches)
		return err
	}
}
