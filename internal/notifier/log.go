package notifier

import (
	"context"
	"log/slog"

	"github.com/ar3ac/jobhunter/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new postings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each posting via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs one line per posting. It never fails.
func (n *LogNotifier) Notify(_ context.Context, postings []model.Posting) error {
	for _, p := range postings {
		args := []any{
			"source", p.Source,
			"title", p.Title,
			"company", p.Company,
			"location", p.Location,
			"url", p.URL,
		}
		if p.PostedAt != "" {
			args = append(args, "posted_at", p.PostedAt)
		}
		if search := p.Extra[model.ExtraSearch]; search != "" {
			args = append(args, "search", search)
		}
		n.logger.Info("new posting", args...)
	}
	return nil
}
