package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/ar3ac/jobhunter/internal/model"
)

const adzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"

// Ensure Adzuna implements model.Source.
var _ model.Source = (*Adzuna)(nil)

// AdzunaCredentials identifies an Adzuna API application.
type AdzunaCredentials struct {
	AppID   string
	AppKey  string
	Country string // two-letter country code, e.g. "it"
}

// Adzuna fetches jobs from the Adzuna search API, newest first.
type Adzuna struct {
	creds   AdzunaCredentials
	client  *resty.Client
	baseURL string
	logger  *slog.Logger
}

// NewAdzuna creates an Adzuna source. Missing credentials are reported on
// Fetch so the source only fails when it is actually used.
func NewAdzuna(creds AdzunaCredentials, logger *slog.Logger) *Adzuna {
	if creds.Country == "" {
		creds.Country = "it"
	}
	return &Adzuna{
		creds:   creds,
		client:  resty.New().SetTimeout(defaultTimeout),
		baseURL: adzunaBaseURL,
		logger:  logger,
	}
}

func (a *Adzuna) Name() string { return "adzuna" }

// Fetch queries the first result page for q. Location is passed to Adzuna
// as-is; salary fields are kept in Extra when present.
func (a *Adzuna) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	if a.creds.AppID == "" || a.creds.AppKey == "" {
		return nil, fmt.Errorf("adzuna: app_id and app_key are required: %w", model.ErrMissingCredentials)
	}

	perPage := q.Limit
	if perPage <= 0 {
		perPage = 30
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("country", a.creds.Country).
		SetQueryParams(map[string]string{
			"app_id":           a.creds.AppID,
			"app_key":          a.creds.AppKey,
			"what":             keywordString(q.Keywords),
			"where":            q.Location,
			"results_per_page": strconv.Itoa(perPage),
			"sort_by":          "date",
			"sort_direction":   "down",
		}).
		Get(a.baseURL + "/{country}/search/1")
	if err != nil {
		return nil, fmt.Errorf("adzuna fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, statusError("adzuna", a.creds.Country, resp.StatusCode(), resp.Header().Get("Retry-After"))
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("adzuna fetch: response is not valid JSON")
	}

	results := gjson.GetBytes(body, "results").Array()
	postings := make([]model.Posting, 0, len(results))
	for _, it := range results {
		p := model.Posting{
			Source:      a.Name(),
			ID:          it.Get("id").String(),
			Title:       it.Get("title").String(),
			Company:     it.Get("company.display_name").String(),
			Location:    it.Get("location.display_name").String(),
			URL:         it.Get("redirect_url").String(),
			PostedAt:    it.Get("created").String(),
			Description: it.Get("description").String(),
		}
		for key, path := range map[string]string{
			model.ExtraSalaryMin: "salary_min",
			model.ExtraSalaryMax: "salary_max",
			model.ExtraCurrency:  "salary_currency",
		} {
			if v := it.Get(path); v.Exists() && v.Type != gjson.Null {
				p = p.WithExtra(key, v.String())
			}
		}
		postings = append(postings, p)
	}

	a.logger.Debug("adzuna fetched", "country", a.creds.Country, "postings", len(postings))
	return postings, nil
}
