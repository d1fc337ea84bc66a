package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ar3ac/jobhunter/internal/config"
	"github.com/ar3ac/jobhunter/internal/ingest"
)

var batchDryRun bool

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run every profile search once",
	Long:  "Run the profile's searches in order against one store, then notify once with everything new.",
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "fetch and notify, store nothing")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(profilePath)
	if err != nil {
		fatal(logger, "failed to load profile", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batch, cleanup, err := newBatchRunner(ctx, cfg, batchDryRun, logger)
	if err != nil {
		fatal(logger, "failed to set up batch", err)
	}
	defer cleanup()

	if _, err := batch.Run(ctx, profileSearches(cfg)); err != nil {
		fatal(logger, "batch failed", err)
	}
	return nil
}

// newBatchRunner wires the store, sources and notifier of a profile into a
// batch runner. The returned cleanup closes what was opened.
func newBatchRunner(ctx context.Context, cfg *config.Config, dryRun bool, logger *slog.Logger) (*ingest.Batch, func(), error) {
	if len(cfg.Searches) == 0 {
		return nil, nil, errNoSearches
	}

	logger.Info("profile loaded",
		"searches", len(cfg.Searches),
		"store", cfg.Store.Driver,
		"notifier", cfg.Notification.Type,
		"boards", len(cfg.Sources.Boards),
	)

	httpClient := newHTTPClient()
	registry := buildRegistry(cfg, httpClient, logger)

	st, closeStore, err := openStore(ctx, cfg, "", dryRun, logger)
	if err != nil {
		return nil, nil, err
	}
	n, closeNotifier, err := setupNotifier(ctx, cfg, httpClient, logger)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	orch := ingest.NewOrchestrator(registry, st, logger)
	cleanup := func() {
		closeNotifier()
		closeStore()
	}
	return ingest.NewBatch(orch, n, logger), cleanup, nil
}
