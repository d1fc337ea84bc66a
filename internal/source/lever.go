package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ar3ac/jobhunter/internal/filter"
	"github.com/ar3ac/jobhunter/internal/model"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

// Ensure Lever implements model.Source.
var _ model.Source = (*Lever)(nil)

type leverCategories struct {
	Team         string   `json:"team"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"`
	WorkplaceType    string          `json:"workplaceType"`
	HostedURL        string          `json:"hostedUrl"`
}

// Lever fetches one company's postings from the Lever public postings API,
// matching keywords and location client-side.
type Lever struct {
	name        string
	companySlug string
	companyName string
	baseURL     string
	client      *http.Client
	logger      *slog.Logger
}

// NewLever creates a source named name for a Lever company slug.
func NewLever(name, companySlug, companyName string, client *http.Client, logger *slog.Logger) *Lever {
	return &Lever{
		name:        name,
		companySlug: companySlug,
		companyName: companyName,
		baseURL:     leverBaseURL,
		client:      client,
		logger:      logger,
	}
}

func (l *Lever) Name() string { return l.name }

func (l *Lever) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s?mode=json", l.baseURL, l.companySlug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", l.companySlug, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", l.companySlug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("lever", l.companySlug, resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	var leverJobs []leverJob
	if err := json.NewDecoder(resp.Body).Decode(&leverJobs); err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", l.companySlug, err)
	}

	match := filter.New(q)
	postings := make([]model.Posting, 0)
	for _, lj := range leverJobs {
		// allLocations is more complete than location when present
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}

		// createdAt is unix milliseconds
		var postedAt string
		if lj.CreatedAt > 0 {
			postedAt = time.UnixMilli(lj.CreatedAt).UTC().Format(time.RFC3339)
		}

		p := model.Posting{
			Source:      "lever",
			ID:          lj.ID,
			Title:       lj.Text,
			Company:     l.companyName,
			Location:    location,
			URL:         lj.HostedURL,
			PostedAt:    postedAt,
			Description: lj.DescriptionPlain,
		}
		if !match.Match(p) {
			continue
		}
		postings = append(postings, p)
		if q.Limit > 0 && len(postings) >= q.Limit {
			break
		}
	}

	l.logger.Debug("lever board fetched",
		"company", l.companySlug,
		"total", len(leverJobs),
		"matched", len(postings),
	)
	return postings, nil
}
