// Package ingest drives source adapters and the store for one search or a
// batch of profile searches.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ar3ac/jobhunter/internal/model"
)

// SourceLookup resolves a source name to a configured source.
type SourceLookup interface {
	Lookup(name string) (model.Source, bool)
}

// Search is one named set of search parameters run against a list of sources.
type Search struct {
	Name    string // label attached to accepted postings; empty means no label
	Sources []string
	Query   model.Query
}

// SourceFailure records a source that failed during a run.
type SourceFailure struct {
	Source string
	Err    error
}

// Result summarises one ingestion run.
type Result struct {
	RunID    string
	Search   string
	Fetched  int             // postings returned by all sources
	Accepted []model.Posting // newly stored postings, in fetch order
	Failures []SourceFailure
	Unknown  []string // source names with no configured source
}

// Orchestrator fetches from sources and hands the combined postings to the
// store. Fetches may run concurrently; store writes are one sequential call.
type Orchestrator struct {
	sources SourceLookup
	store   model.Store
	logger  *slog.Logger
}

// NewOrchestrator creates an orchestrator wired with its dependencies.
func NewOrchestrator(sources SourceLookup, store model.Store, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sources: sources,
		store:   store,
		logger:  logger,
	}
}

// Run executes s once. A source failure is logged and recorded in the
// result; that source contributes no postings. Only a store-level failure is
// returned as an error.
func (o *Orchestrator) Run(ctx context.Context, s Search) (Result, error) {
	res := Result{RunID: uuid.NewString(), Search: s.Name}
	logger := o.logger.With("run_id", res.RunID)
	if s.Name != "" {
		logger = logger.With("search", s.Name)
	}
	start := time.Now()

	var active []model.Source
	for _, name := range s.Sources {
		src, ok := o.sources.Lookup(name)
		if !ok {
			logger.Warn("unknown source, skipping", "source", name)
			res.Unknown = append(res.Unknown, name)
			continue
		}
		active = append(active, src)
	}

	batches, errs := fetchAll(ctx, active, s.Query)

	var postings []model.Posting
	for i, src := range active {
		if errs[i] != nil {
			logger.Error("source failed", "source", src.Name(), "error", errs[i])
			res.Failures = append(res.Failures, SourceFailure{Source: src.Name(), Err: errs[i]})
			continue
		}
		logger.Info("source fetched", "source", src.Name(), "postings", len(batches[i]))
		postings = append(postings, batches[i]...)
	}
	res.Fetched = len(postings)

	accepted, err := o.store.InsertIfNew(ctx, postings)
	if err != nil {
		return res, fmt.Errorf("ingesting search %q: %w", s.Name, err)
	}

	if s.Name != "" {
		for i := range accepted {
			accepted[i] = accepted[i].WithExtra(model.ExtraSearch, s.Name)
		}
	}
	res.Accepted = accepted

	logger.Info("ingestion run complete",
		"sources", len(active),
		"failed", len(res.Failures),
		"fetched", res.Fetched,
		"new", len(res.Accepted),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

// fetchAll calls every source concurrently. Results and errors are indexed
// like sources so callers can concatenate in source-list order.
func fetchAll(ctx context.Context, sources []model.Source, q model.Query) ([][]model.Posting, []error) {
	batches := make([][]model.Posting, len(sources))
	errs := make([]error, len(sources))

	// Per-source errors are collected, not returned, so one failure never
	// cancels the others.
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			batches[i], errs[i] = fetchOne(ctx, src, q)
			return nil
		})
	}
	_ = g.Wait()
	return batches, errs
}

// fetchOne converts a panicking adapter into a per-source failure.
func fetchOne(ctx context.Context, src model.Source, q model.Query) (postings []model.Posting, err error) {
	defer func() {
		if r := recover(); r != nil {
			postings, err = nil, fmt.Errorf("source %s panicked: %v", src.Name(), r)
		}
	}()
	return src.Fetch(ctx, q)
}
