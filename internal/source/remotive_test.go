package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ar3ac/jobhunter/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const remotivePayload = `{
	"job-count": 4,
	"jobs": [
		{
			"id": 1001,
			"url": "https://remotive.com/remote-jobs/software-dev/python-dev-1001",
			"title": " Python Developer ",
			"company_name": "Acme",
			"candidate_required_location": "Italy",
			"publication_date": "2026-02-10T09:00:00",
			"description": "<p>Build things</p>"
		},
		{
			"id": 1002,
			"url": "https://remotive.com/remote-jobs/software-dev/backend-1002",
			"title": "Backend Engineer",
			"company_name": "Globex",
			"candidate_required_location": "USA Only",
			"publication_date": "2026-02-11T09:00:00"
		},
		{
			"id": 1003,
			"url": "https://remotive.com/remote-jobs/software-dev/data-1003",
			"title": "Data Engineer",
			"company_name": "Initech",
			"candidate_required_location": "Europe",
			"publication_date": "2026-02-12T09:00:00"
		},
		{
			"id": 1004,
			"url": "https://remotive.com/remote-jobs/software-dev/anywhere-1004",
			"title": "Go Developer",
			"company_name": "Hooli",
			"candidate_required_location": "",
			"publication_date": "2026-02-13T09:00:00"
		}
	]
}`

func newTestRemotive(srv *httptest.Server) *Remotive {
	r := NewRemotive(discardLogger())
	r.baseURL = srv.URL
	return r
}

func TestRemotive_Fetch_ExtendedRegion(t *testing.T) {
	var gotSearch string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(remotivePayload))
	}))
	defer srv.Close()

	postings, err := newTestRemotive(srv).Fetch(context.Background(), model.Query{
		Keywords:       []string{"python", " ", "django"},
		Location:       "Italy",
		ExtendedRegion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSearch != "python django" {
		t.Errorf("search param = %q, want %q", gotSearch, "python django")
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}

	p := postings[0]
	if p.Source != "remotive" || p.ID != "1001" {
		t.Errorf("unexpected identity: source=%q id=%q", p.Source, p.ID)
	}
	if p.Title != "Python Developer" {
		t.Errorf("expected trimmed title, got %q", p.Title)
	}
	if p.PostedAt != "2026-02-10T09:00:00" {
		t.Errorf("expected raw publication date, got %q", p.PostedAt)
	}
	if postings[1].ID != "1003" {
		t.Errorf("expected europe posting second, got %q", postings[1].ID)
	}
}

func TestRemotive_Fetch_EmptyLocationBecomesRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(remotivePayload))
	}))
	defer srv.Close()

	postings, err := newTestRemotive(srv).Fetch(context.Background(), model.Query{Location: "remote"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 || postings[0].ID != "1004" {
		t.Fatalf("expected only the location-less posting, got %+v", postings)
	}
	if postings[0].Location != "Remote" {
		t.Errorf("expected location Remote, got %q", postings[0].Location)
	}
}

func TestRemotive_Fetch_StopsAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(remotivePayload))
	}))
	defer srv.Close()

	postings, err := newTestRemotive(srv).Fetch(context.Background(), model.Query{Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 3 {
		t.Fatalf("expected 3 postings, got %d", len(postings))
	}
}

func TestRemotive_Fetch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job-count": 0, "jobs": []}`))
	}))
	defer srv.Close()

	postings, err := newTestRemotive(srv).Fetch(context.Background(), model.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if postings == nil || len(postings) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", postings)
	}
}

func TestRemotive_Fetch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	if _, err := newTestRemotive(srv).Fetch(context.Background(), model.Query{}); err == nil {
		t.Fatal("expected error for non-JSON response, got nil")
	}
}

func TestRemotive_Fetch_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestRemotive(srv).Fetch(context.Background(), model.Query{})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests || httpErr.RetryAfter.Seconds() != 30 {
		t.Errorf("unexpected HTTPError: %+v", httpErr)
	}
}
