package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ar3ac/jobhunter/internal/ingest"
	"github.com/ar3ac/jobhunter/internal/model"
	"github.com/ar3ac/jobhunter/internal/notifier"
)

var runFlags struct {
	sources        []string
	keywords       []string
	location       string
	extendedRegion bool
	limit          int
	db             string
	name           string
	dryRun         bool
	notify         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single search once",
	Long: "Fetch from the given sources, store what is new and log it. " +
		"With --notify the new postings also go to the profile's notifier.",
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runFlags.sources, "sources", []string{"remotive"}, "sources to query (e.g. remotive,adzuna)")
	f.StringSliceVar(&runFlags.keywords, "kw", []string{"python"}, "search keywords")
	f.StringVar(&runFlags.location, "location", "", "client-side location filter")
	f.BoolVar(&runFlags.extendedRegion, "extended-region", false, "also match the wider region of the location (Italy includes Europe/EU)")
	f.IntVar(&runFlags.limit, "limit", 30, "maximum postings per source")
	f.StringVar(&runFlags.db, "db", "", "sqlite database file (overrides the profile)")
	f.StringVar(&runFlags.name, "name", "", "label attached to new postings as extra.search")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "fetch and report, store nothing")
	f.BoolVar(&runFlags.notify, "notify", false, "send new postings to the configured notifier")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(profilePath)
	if err != nil {
		fatal(logger, "failed to load profile", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := newHTTPClient()
	registry := buildRegistry(cfg, httpClient, logger)

	st, closeStore, err := openStore(ctx, cfg, runFlags.db, runFlags.dryRun, logger)
	if err != nil {
		fatal(logger, "failed to open store", err)
	}
	defer closeStore()

	orch := ingest.NewOrchestrator(registry, st, logger)
	res, err := orch.Run(ctx, ingest.Search{
		Name:    runFlags.name,
		Sources: runFlags.sources,
		Query: model.Query{
			Keywords:       runFlags.keywords,
			Location:       runFlags.location,
			Limit:          runFlags.limit,
			ExtendedRegion: runFlags.extendedRegion,
		},
	})
	if err != nil {
		fatal(logger, "ingestion failed", err)
	}

	if len(res.Accepted) == 0 {
		logger.Info("no new postings")
		return nil
	}
	consumers := []model.Notifier{notifier.NewLogNotifier(logger)}
	if runFlags.notify && cfg.Notification.Type != "log" {
		n, closeNotifier, err := setupNotifier(ctx, cfg, httpClient, logger)
		if err != nil {
			fatal(logger, "failed to set up notifier", err)
		}
		defer closeNotifier()
		consumers = append(consumers, n)
	}
	notifyAll(ctx, consumers, res.Accepted, logger)
	return nil
}

// notifyAll hands postings to every consumer. A failing consumer is logged
// and does not stop the others. It returns the number of failures.
func notifyAll(ctx context.Context, consumers []model.Notifier, postings []model.Posting, logger *slog.Logger) int {
	failed := 0
	for _, n := range consumers {
		if err := n.Notify(ctx, postings); err != nil {
			logger.Error("notification failed", "postings", len(postings), "error", err)
			failed++
		}
	}
	return failed
}
