package notifier

import (
	"context"
	"time"

	"github.com/ar3ac/jobhunter/internal/model"
)

// SendTestMessage sends a sample posting to verify a notifier integration.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	now := time.Now().UTC().Truncate(time.Second)
	p := model.Posting{
		Source:    "test",
		ID:        "test-001",
		Title:     "Test notification, integration verified",
		Company:   "jobhunter",
		Location:  "Everywhere",
		URL:       "https://remotive.com/remote-jobs",
		PostedAt:  now.Format(time.RFC3339),
		Extra:     map[string]string{model.ExtraSearch: "notify-test"},
		FetchedAt: &now,
	}
	return n.Notify(ctx, []model.Posting{p})
}
