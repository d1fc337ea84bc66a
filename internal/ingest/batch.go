package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ar3ac/jobhunter/internal/model"
)

// BatchResult aggregates the runs of a batch.
type BatchResult struct {
	Runs     []Result
	Fetched  int
	Accepted []model.Posting // all new postings, in search order
}

// Batch runs every profile search against one store and notifies once with
// everything that was new.
type Batch struct {
	orchestrator *Orchestrator
	notifier     model.Notifier
	logger       *slog.Logger
}

// NewBatch creates a batch runner. notifier may be nil.
func NewBatch(orchestrator *Orchestrator, notifier model.Notifier, logger *slog.Logger) *Batch {
	return &Batch{
		orchestrator: orchestrator,
		notifier:     notifier,
		logger:       logger,
	}
}

// Run executes searches in order. A store failure aborts the batch before
// notification; notifier failures are logged only.
func (b *Batch) Run(ctx context.Context, searches []Search) (BatchResult, error) {
	var br BatchResult
	for _, s := range searches {
		if err := ctx.Err(); err != nil {
			return br, fmt.Errorf("batch interrupted: %w", err)
		}
		res, err := b.orchestrator.Run(ctx, s)
		br.Runs = append(br.Runs, res)
		br.Fetched += res.Fetched
		if err != nil {
			return br, err
		}
		br.Accepted = append(br.Accepted, res.Accepted...)
	}

	b.logger.Info("batch complete",
		"searches", len(searches),
		"fetched", br.Fetched,
		"new", len(br.Accepted),
	)

	if len(br.Accepted) == 0 || b.notifier == nil {
		return br, nil
	}
	if err := b.notifier.Notify(ctx, br.Accepted); err != nil {
		b.logger.Error("notification failed", "postings", len(br.Accepted), "error", err)
	}
	return br, nil
}
