package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ar3ac/jobhunter/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func samplePosting(title, company string) model.Posting {
	return model.Posting{
		Source:   "remotive",
		ID:       "123",
		Company:  company,
		Title:    title,
		Location: "Remote, EU",
		URL:      "https://example.com/apply",
		PostedAt: "2026-01-15T10:00:00",
		Extra:    map[string]string{model.ExtraSearch: "python-remote"},
	}
}

func newTestSlack(srv *httptest.Server) *SlackNotifier {
	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	n.interval = 0
	return n
}

func TestSlackNotifier_EmptyPostings(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	n := newTestSlack(srv)
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_Digest(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	postings := []model.Posting{
		samplePosting("Backend Engineer", "Acme Corp"),
		samplePosting("R&D <Lead>", "Beta"),
	}
	if err := newTestSlack(srv).Notify(context.Background(), postings); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Blocks) != 4 {
		t.Fatalf("expected header, divider and 2 sections, got %d blocks", len(payload.Blocks))
	}
	if got := payload.Blocks[0].Text.Text; got != "2 new job postings" {
		t.Errorf("header = %q", got)
	}

	first := payload.Blocks[2].Text.Text
	want := "*<https://example.com/apply|Backend Engineer>*\nAcme Corp · Remote, EU · remotive · python-remote\nPosted: 2026-01-15T10:00:00"
	if first != want {
		t.Errorf("section text\n got  %q\n want %q", first, want)
	}
	if second := payload.Blocks[3].Text.Text; !strings.Contains(second, "R&amp;D &lt;Lead&gt;") {
		t.Errorf("expected escaped title, got %q", second)
	}
}

func TestSlackNotifier_SplitsLargeDigest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var payload slackPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(payload.Blocks) > 50 {
			t.Errorf("message has %d blocks, Slack allows 50", len(payload.Blocks))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	postings := make([]model.Posting, 100)
	for i := range postings {
		postings[i] = samplePosting(fmt.Sprintf("Engineer %d", i), "Acme")
	}
	if err := newTestSlack(srv).Notify(context.Background(), postings); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}
	if c := calls.Load(); c != 3 {
		t.Errorf("expected 3 messages, got %d", c)
	}
}

func TestSlackNotifier_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestSlack(srv).Notify(context.Background(), []model.Posting{samplePosting("A", "X")})
	if err == nil {
		t.Error("expected error when all messages fail, got nil")
	}
}

func TestSlackNotifier_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	postings := make([]model.Posting, slackPostingsPerMessage+1)
	for i := range postings {
		postings[i] = samplePosting("Engineer", "Acme")
	}
	if err := newTestSlack(srv).Notify(context.Background(), postings); err != nil {
		t.Errorf("expected nil (partial success), got %v", err)
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestSlack(srv).Notify(context.Background(), []model.Posting{samplePosting("Rate Limited", "Test")})
	if err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestSendTestMessage(t *testing.T) {
	rec := &recordingNotifier{}
	if err := SendTestMessage(context.Background(), rec); err != nil {
		t.Fatalf("SendTestMessage: %v", err)
	}
	if len(rec.got) != 1 || rec.got[0].Source != "test" || rec.got[0].FetchedAt == nil {
		t.Errorf("unexpected test posting: %+v", rec.got)
	}
}

type recordingNotifier struct {
	got []model.Posting
}

func (r *recordingNotifier) Notify(_ context.Context, postings []model.Posting) error {
	r.got = append(r.got, postings...)
	return nil
}
