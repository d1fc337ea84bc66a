package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ar3ac/jobhunter/internal/config"
	"github.com/ar3ac/jobhunter/internal/ingest"
	"github.com/ar3ac/jobhunter/internal/model"
	"github.com/ar3ac/jobhunter/internal/notifier"
	"github.com/ar3ac/jobhunter/internal/ratelimit"
	"github.com/ar3ac/jobhunter/internal/retry"
	"github.com/ar3ac/jobhunter/internal/source"
	"github.com/ar3ac/jobhunter/internal/store"
)

const defaultProfile = "profile.yaml"

var (
	profilePath string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:   "jobhunter",
	Short: "Collect job postings from several sources without duplicates",
	Long: "jobhunter fetches postings from job boards and APIs, stores each one once " +
		"and reports only what is new.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "path to profile (default: JOBHUNTER_PROFILE env var or ./profile.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the profile path and parses it.
// Priority: explicit path arg > JOBHUNTER_PROFILE env var > "./profile.yaml".
// A missing default profile yields the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		if env := os.Getenv("JOBHUNTER_PROFILE"); env != "" {
			path, explicit = env, true
		} else {
			path = defaultProfile
		}
	}

	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := config.LoadDotEnv(".env"); err != nil {
				return nil, err
			}
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// recordStore is a store that can also be browsed.
type recordStore interface {
	model.Store
	Recent(ctx context.Context, limit int) ([]store.Record, error)
	CandidateGroups(ctx context.Context, limit int) ([]store.CandidateGroup, error)
	Close() error
}

// openRecordStore opens the store selected by cfg.Store. dbPath, when set,
// overrides the sqlite file.
func openRecordStore(ctx context.Context, cfg *config.Config, dbPath string, logger *slog.Logger) (recordStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.Store.DSN, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		path := cfg.Store.Path
		if dbPath != "" {
			path = dbPath
		}
		s, err := store.NewSQLiteStore(path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// openStore returns the ingestion store and a close func. In dry-run mode
// nothing is persisted.
func openStore(ctx context.Context, cfg *config.Config, dbPath string, dryRun bool, logger *slog.Logger) (model.Store, func(), error) {
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be stored")
		return store.NewNopStore(), func() {}, nil
	}
	s, err := openRecordStore(ctx, cfg, dbPath, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

// setupNotifier builds the configured notifier and a close func.
func setupNotifier(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.Notifier, func(), error) {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger), func() {}, nil
	case "redis":
		client, err := notifier.NewRedisClient(ctx, cfg.Notification.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		stream := cfg.Notification.Stream
		if stream == "" {
			stream = notifier.DefaultStream
		}
		logger.Info("using redis notifier", "stream", stream)
		return notifier.NewRedisNotifier(client, stream, logger), func() { client.Close() }, nil
	default:
		return notifier.NewLogNotifier(logger), func() {}, nil
	}
}

// buildRegistry registers every configured source, each rate limited per
// backend and retried on transient failures.
func buildRegistry(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) *source.Registry {
	limiter := ratelimit.NewLimiter(cfg.RateLimit.MinDelay)
	logger.Debug("rate limiter configured", "min_delay", cfg.RateLimit.MinDelay.String())

	wrap := func(src model.Source, backend string) model.Source {
		limited := ratelimit.Wrap(src, limiter, backend)
		return retry.Wrap(limited, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger)
	}

	adzuna := cfg.Sources.Adzuna
	registry := source.NewRegistry(
		wrap(source.NewRemotive(logger), "remotive"),
		wrap(source.NewAdzuna(source.AdzunaCredentials{
			AppID:   adzuna.AppID,
			AppKey:  adzuna.AppKey,
			Country: adzuna.Country,
		}, logger), "adzuna"),
	)

	for _, b := range cfg.Sources.Boards {
		if !b.Enabled {
			continue
		}
		var src model.Source
		switch b.ATS {
		case "greenhouse":
			src = source.NewGreenhouse(b.Name, b.BoardToken, b.Company, httpClient, logger)
		case "lever":
			src = source.NewLever(b.Name, b.BoardToken, b.Company, httpClient, logger)
		case "ashby":
			src = source.NewAshby(b.Name, b.BoardToken, b.Company, httpClient, logger)
		default:
			logger.Warn("unsupported ATS, skipping", "board", b.Name, "ats", b.ATS)
			continue
		}
		registry.Register(wrap(src, b.ATS))
		logger.Debug("registered board", "name", b.Name, "ats", b.ATS)
	}
	return registry
}

// profileSearches converts the profile's searches for the batch runner.
func profileSearches(cfg *config.Config) []ingest.Search {
	searches := make([]ingest.Search, 0, len(cfg.Searches))
	for _, s := range cfg.Searches {
		searches = append(searches, ingest.Search{
			Name:    s.Name,
			Sources: s.Sources,
			Query: model.Query{
				Keywords:       s.Keywords,
				Location:       s.Location,
				Limit:          s.Limit,
				ExtendedRegion: s.ExtendedRegion,
			},
		})
	}
	return searches
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// fatal logs err and exits, the way every command reports setup failures.
func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

var errNoSearches = errors.New("profile defines no searches")
