package filter

import (
	"strings"

	"github.com/ar3ac/jobhunter/internal/model"
)

// extendedRegions lists, per wanted location, the broader region tokens that
// also count as a match when extended region matching is on.
var extendedRegions = map[string][]string{
	"italy": {"europe", "eu"},
}

// QueryFilter applies a Query's keywords and location client-side, for
// sources whose APIs return a whole board or ignore location.
// Matching is case-insensitive substring matching.
type QueryFilter struct {
	keywords []string
	location string
	extended bool
}

// New returns a filter for q. Blank keywords are ignored; an empty keyword
// list or location matches everything.
func New(q model.Query) *QueryFilter {
	kws := make([]string, 0, len(q.Keywords))
	for _, kw := range q.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			kws = append(kws, kw)
		}
	}
	return &QueryFilter{
		keywords: kws,
		location: strings.ToLower(strings.TrimSpace(q.Location)),
		extended: q.ExtendedRegion,
	}
}

// Match reports whether p passes both the keyword and the location check.
func (f *QueryFilter) Match(p model.Posting) bool {
	return f.MatchKeywords(p.Title) && f.MatchLocation(p.Location)
}

// MatchKeywords returns true if title contains any keyword.
func (f *QueryFilter) MatchKeywords(title string) bool {
	if len(f.keywords) == 0 {
		return true
	}
	titleLower := strings.ToLower(title)
	for _, kw := range f.keywords {
		if strings.Contains(titleLower, kw) {
			return true
		}
	}
	return false
}

// MatchLocation returns true if location contains the wanted location, or,
// with extended region matching, one of its broader region tokens.
func (f *QueryFilter) MatchLocation(location string) bool {
	if f.location == "" {
		return true
	}
	locLower := strings.ToLower(location)
	if strings.Contains(locLower, f.location) {
		return true
	}
	if !f.extended {
		return false
	}
	for _, token := range extendedRegions[f.location] {
		if strings.Contains(locLower, token) {
			return true
		}
	}
	return false
}
