package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ar3ac/jobhunter/internal/ingest"
	"github.com/ar3ac/jobhunter/internal/notifier"
	"github.com/ar3ac/jobhunter/internal/source"
	"github.com/ar3ac/jobhunter/internal/store"
)

func TestBatchJob_AcquiresAndReleasesStorePerRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbPath := filepath.Join(t.TempDir(), "watch.db")

	var opened []*store.SQLiteStore
	closed := 0
	factory := func(ctx context.Context) (*ingest.Batch, func(), error) {
		s, err := store.NewSQLiteStore(dbPath, logger)
		if err != nil {
			return nil, nil, err
		}
		opened = append(opened, s)
		orch := ingest.NewOrchestrator(source.NewRegistry(), s, logger)
		return ingest.NewBatch(orch, notifier.NewLogNotifier(logger), logger), func() {
			closed++
			s.Close()
		}, nil
	}

	job := batchJob(factory, []ingest.Search{{Name: "nightly", Sources: []string{"remotive"}}})
	for i := 0; i < 2; i++ {
		if err := job(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if len(opened) != 2 || closed != 2 {
		t.Fatalf("opened %d stores, closed %d; want one of each per run", len(opened), closed)
	}
	if opened[0] == opened[1] {
		t.Error("runs shared a store")
	}
	for i, s := range opened {
		if _, err := s.Count(context.Background()); err == nil {
			t.Errorf("store of run %d still open after the run", i)
		}
	}
}

func TestBatchJob_SetupFailure(t *testing.T) {
	want := errors.New("store unreachable")
	job := batchJob(func(context.Context) (*ingest.Batch, func(), error) {
		return nil, nil, want
	}, nil)

	if err := job(context.Background()); !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}
