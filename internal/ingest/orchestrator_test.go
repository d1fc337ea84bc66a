package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ar3ac/jobhunter/internal/model"
	"github.com/ar3ac/jobhunter/internal/source"
	"github.com/ar3ac/jobhunter/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource returns canned postings or an error after an optional delay.
type fakeSource struct {
	name     string
	postings []model.Posting
	err      error
	delay    time.Duration
	calls    atomic.Int32
	gotQuery model.Query
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	f.calls.Add(1)
	f.gotQuery = q
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.postings, f.err
}

type panickingSource struct{}

func (panickingSource) Name() string { return "broken" }

func (panickingSource) Fetch(context.Context, model.Query) ([]model.Posting, error) {
	panic("nil map write")
}

// failingStore is unreachable.
type failingStore struct{}

func (failingStore) InsertIfNew(context.Context, []model.Posting) ([]model.Posting, error) {
	return nil, errors.New("database is locked")
}

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "ingest.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func remotivePostings(n int) []model.Posting {
	out := make([]model.Posting, n)
	for i := range out {
		out[i] = model.Posting{
			Source:   "remotive",
			ID:       string(rune('a' + i)),
			Title:    "Python Developer",
			Company:  "Acme",
			Location: "Remote",
		}
	}
	return out
}

func TestRun_FailingSourceIsIsolated(t *testing.T) {
	linkedin := &fakeSource{name: "linkedin", err: errors.New("login wall")}
	remotive := &fakeSource{name: "remotive", postings: remotivePostings(3)}
	o := NewOrchestrator(source.NewRegistry(linkedin, remotive), newSQLiteStore(t), discardLogger())

	res, err := o.Run(context.Background(), Search{Sources: []string{"linkedin", "remotive"}})
	require.NoError(t, err)

	assert.Len(t, res.Accepted, 3)
	assert.Equal(t, 3, res.Fetched)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "linkedin", res.Failures[0].Source)
	assert.EqualError(t, res.Failures[0].Err, "login wall")
	assert.NotEmpty(t, res.RunID)
}

func TestRun_PanickingSourceIsIsolated(t *testing.T) {
	remotive := &fakeSource{name: "remotive", postings: remotivePostings(1)}
	o := NewOrchestrator(source.NewRegistry(panickingSource{}, remotive), newSQLiteStore(t), discardLogger())

	res, err := o.Run(context.Background(), Search{Sources: []string{"broken", "remotive"}})
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 1)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0].Err.Error(), "panicked")
}

func TestRun_SecondRunAcceptsNothing(t *testing.T) {
	remotive := &fakeSource{name: "remotive", postings: remotivePostings(2)}
	o := NewOrchestrator(source.NewRegistry(remotive), newSQLiteStore(t), discardLogger())
	search := Search{Sources: []string{"remotive"}}

	first, err := o.Run(context.Background(), search)
	require.NoError(t, err)
	assert.Len(t, first.Accepted, 2)

	second, err := o.Run(context.Background(), search)
	require.NoError(t, err)
	assert.Empty(t, second.Accepted)
	assert.Equal(t, 2, second.Fetched)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_DuplicateInSameBatchFirstWins(t *testing.T) {
	remotive := &fakeSource{name: "remotive", postings: []model.Posting{
		{Source: "remotive", ID: "1", Title: "Dev"},
		{Source: "remotive", ID: "1", Title: "Dev (repost)"},
	}}
	o := NewOrchestrator(source.NewRegistry(remotive), newSQLiteStore(t), discardLogger())

	res, err := o.Run(context.Background(), Search{Sources: []string{"remotive"}})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "Dev", res.Accepted[0].Title)
}

func TestRun_PreservesSourceOrderUnderConcurrency(t *testing.T) {
	slow := &fakeSource{name: "slow", delay: 50 * time.Millisecond, postings: []model.Posting{
		{Source: "slow", ID: "s1"}, {Source: "slow", ID: "s2"},
	}}
	fast := &fakeSource{name: "fast", postings: []model.Posting{
		{Source: "fast", ID: "f1"},
	}}
	o := NewOrchestrator(source.NewRegistry(slow, fast), newSQLiteStore(t), discardLogger())

	res, err := o.Run(context.Background(), Search{Sources: []string{"slow", "fast"}})
	require.NoError(t, err)

	var ids []string
	for _, p := range res.Accepted {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"s1", "s2", "f1"}, ids)
}

func TestRun_TagsAcceptedWithSearchName(t *testing.T) {
	p := model.Posting{Source: "remotive", ID: "7", Extra: map[string]string{"k": "v"}}
	remotive := &fakeSource{name: "remotive", postings: []model.Posting{p}}
	o := NewOrchestrator(source.NewRegistry(remotive), newSQLiteStore(t), discardLogger())

	res, err := o.Run(context.Background(), Search{Name: "python-italy", Sources: []string{"remotive"}})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "python-italy", res.Accepted[0].Extra[model.ExtraSearch])
	assert.Equal(t, "v", res.Accepted[0].Extra["k"])
	assert.NotNil(t, res.Accepted[0].FetchedAt)
	assert.NotContains(t, remotive.postings[0].Extra, model.ExtraSearch, "source postings must not be mutated")
}

func TestRun_NoLabelWithoutSearchName(t *testing.T) {
	remotive := &fakeSource{name: "remotive", postings: remotivePostings(1)}
	o := NewOrchestrator(source.NewRegistry(remotive), newSQLiteStore(t), discardLogger())

	res, err := o.Run(context.Background(), Search{Sources: []string{"remotive"}})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)
	assert.NotContains(t, res.Accepted[0].Extra, model.ExtraSearch)
}

func TestRun_PassesQueryAndSkipsUnknownSources(t *testing.T) {
	remotive := &fakeSource{name: "remotive"}
	o := NewOrchestrator(source.NewRegistry(remotive), newSQLiteStore(t), discardLogger())
	q := model.Query{Keywords: []string{"go"}, Location: "Italy", Limit: 10, ExtendedRegion: true}

	res, err := o.Run(context.Background(), Search{Sources: []string{"indeed", "remotive"}, Query: q})
	require.NoError(t, err)
	assert.Equal(t, []string{"indeed"}, res.Unknown)
	assert.Empty(t, res.Failures)
	assert.Equal(t, int32(1), remotive.calls.Load())
	assert.Equal(t, q, remotive.gotQuery)
}

func TestRun_StoreFailureIsHard(t *testing.T) {
	remotive := &fakeSource{name: "remotive", postings: remotivePostings(2)}
	o := NewOrchestrator(source.NewRegistry(remotive), failingStore{}, discardLogger())

	res, err := o.Run(context.Background(), Search{Name: "daily", Sources: []string{"remotive"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, 2, res.Fetched)
	assert.Empty(t, res.Accepted)
}
