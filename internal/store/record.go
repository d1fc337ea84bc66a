package store

import (
	"time"

	"github.com/ar3ac/jobhunter/internal/model"
)

// Outcome is the result of an insert-or-skip attempt for a single posting.
type Outcome int

const (
	// Duplicate means a record with the same strong key already existed; nothing was written.
	Duplicate Outcome = iota
	// Inserted means a new record was created.
	Inserted
)

func (o Outcome) String() string {
	if o == Inserted {
		return "inserted"
	}
	return "duplicate"
}

// Record is a persisted posting. Records are created once and never updated.
type Record struct {
	StrongKey   string
	SoftKey     string
	Title       string
	Company     string
	Location    string
	URL         string
	Source      string
	PostedAt    string // empty when the source gave no timestamp
	FetchedAt   time.Time
	Description string
}

// Posting converts the record back into the shape downstream consumers read.
func (r Record) Posting() model.Posting {
	fetched := r.FetchedAt
	return model.Posting{
		Source:      r.Source,
		Title:       r.Title,
		Company:     r.Company,
		Location:    r.Location,
		URL:         r.URL,
		PostedAt:    r.PostedAt,
		Description: r.Description,
		FetchedAt:   &fetched,
	}
}

// CandidateGroup is a set of records sharing a soft key: possibly the same
// job listed by several sources. Groups are only reported, never merged.
type CandidateGroup struct {
	SoftKey string
	Records []Record
}

// fetchedAtLayout is how fetched_at is written to text columns.
const fetchedAtLayout = time.RFC3339
