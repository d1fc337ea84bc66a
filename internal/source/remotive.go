package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/ar3ac/jobhunter/internal/filter"
	"github.com/ar3ac/jobhunter/internal/model"
)

const remotiveBaseURL = "https://remotive.com/api/remote-jobs"

// Ensure Remotive implements model.Source.
var _ model.Source = (*Remotive)(nil)

// Remotive fetches remote jobs from the public Remotive API. The API only
// supports free-text search, so location is filtered client-side.
type Remotive struct {
	client  *resty.Client
	baseURL string
	logger  *slog.Logger
}

// NewRemotive creates a Remotive source.
func NewRemotive(logger *slog.Logger) *Remotive {
	return &Remotive{
		client:  resty.New().SetTimeout(defaultTimeout),
		baseURL: remotiveBaseURL,
		logger:  logger,
	}
}

func (r *Remotive) Name() string { return "remotive" }

// Fetch searches Remotive for q.Keywords and returns up to q.Limit postings
// whose required location matches q.Location. A listing without a location
// is treated as "Remote".
func (r *Remotive) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("search", keywordString(q.Keywords)).
		Get(r.baseURL)
	if err != nil {
		return nil, fmt.Errorf("remotive fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, statusError("remotive", "search", resp.StatusCode(), resp.Header().Get("Retry-After"))
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("remotive fetch: response is not valid JSON (status %d)", resp.StatusCode())
	}

	match := filter.New(model.Query{Location: q.Location, ExtendedRegion: q.ExtendedRegion})
	postings := make([]model.Posting, 0)
	gjson.GetBytes(body, "jobs").ForEach(func(_, j gjson.Result) bool {
		location := strings.TrimSpace(j.Get("candidate_required_location").String())
		if location == "" {
			location = "Remote"
		}
		if !match.MatchLocation(location) {
			return true
		}

		id := j.Get("id")
		if !id.Exists() {
			id = j.Get("job_id")
		}
		postings = append(postings, model.Posting{
			Source:      r.Name(),
			ID:          id.String(),
			Title:       strings.TrimSpace(j.Get("title").String()),
			Company:     strings.TrimSpace(j.Get("company_name").String()),
			Location:    location,
			URL:         j.Get("url").String(),
			PostedAt:    j.Get("publication_date").String(),
			Description: j.Get("description").String(),
		})
		return q.Limit <= 0 || len(postings) < q.Limit
	})

	r.logger.Debug("remotive fetched", "search", keywordString(q.Keywords), "postings", len(postings))
	return postings, nil
}
