package model

import (
	"context"
	"time"
)

// Keys for Posting.Extra that downstream consumers rely on.
const (
	ExtraSearch          = "search"           // name of the search profile that produced the posting
	ExtraCompanyLocation = "company_location" // company-reported location, when a source has one
	ExtraSalaryMin       = "salary_min"
	ExtraSalaryMax       = "salary_max"
	ExtraCurrency        = "currency"
)

// Posting is a job listing as produced by a source adapter, before
// fingerprinting. Only Source is guaranteed; an empty string means absent.
type Posting struct {
	Source      string            // adapter name
	ID          string            // adapter-native id, optional
	Title       string
	Company     string
	Location    string
	URL         string
	PostedAt    string            // raw adapter timestamp, stored as given
	Description string
	Extra       map[string]string // adapter passthrough and reporting labels
	FetchedAt   *time.Time        // set by the store on first insert
}

// WithExtra returns a copy of p with key set to value in Extra.
// The original Extra map is not modified.
func (p Posting) WithExtra(key, value string) Posting {
	extra := make(map[string]string, len(p.Extra)+1)
	for k, v := range p.Extra {
		extra[k] = v
	}
	extra[key] = value
	p.Extra = extra
	return p
}

// Query carries the search parameters handed to every source adapter.
type Query struct {
	Keywords       []string
	Location       string // optional client-side location filter
	Limit          int
	ExtendedRegion bool // widen a country filter to its region (e.g. Italy -> Europe/EU)
}

// Source fetches postings from one job board, API or scrape target.
// It returns an empty slice, not an error, when there are no results.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]Posting, error)
}

// Store persists postings keyed by fingerprint and reports which were new.
type Store interface {
	InsertIfNew(ctx context.Context, postings []Posting) ([]Posting, error)
}

// Notifier hands newly accepted postings to a downstream consumer.
type Notifier interface {
	Notify(ctx context.Context, postings []Posting) error
}
