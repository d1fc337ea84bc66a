package store

import (
	"context"
	"time"

	"github.com/ar3ac/jobhunter/internal/model"
)

// NopStore is a no-op store used in dry-run mode. It persists nothing, so
// every posting appears new on each run.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) InsertIfNew(_ context.Context, postings []model.Posting) ([]model.Posting, error) {
	now := time.Now().UTC().Truncate(time.Second)
	accepted := make([]model.Posting, len(postings))
	for i, p := range postings {
		p.FetchedAt = &now
		accepted[i] = p
	}
	return accepted, nil
}
