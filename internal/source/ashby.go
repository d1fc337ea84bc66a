package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ar3ac/jobhunter/internal/filter"
	"github.com/ar3ac/jobhunter/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

var _ model.Source = (*Ashby)(nil)

type ashbyJob struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Location         string `json:"location"`
	JobURL           string `json:"jobUrl"`
	PublishedAt      string `json:"publishedAt"`
	EmploymentType   string `json:"employmentType"`
	DescriptionPlain string `json:"descriptionPlain"`
	IsListed         bool   `json:"isListed"`
}

type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// Ashby fetches one company's board from the Ashby public posting API.
// Unlisted jobs are skipped; keywords and location are matched client-side.
type Ashby struct {
	name        string
	boardToken  string
	companyName string
	baseURL     string
	client      *http.Client
	logger      *slog.Logger
}

// NewAshby creates a source named name for an Ashby job board.
func NewAshby(name, boardToken, companyName string, client *http.Client, logger *slog.Logger) *Ashby {
	return &Ashby{
		name:        name,
		boardToken:  boardToken,
		companyName: companyName,
		baseURL:     ashbyBaseURL,
		client:      client,
		logger:      logger,
	}
}

func (a *Ashby) Name() string { return a.name }

func (a *Ashby) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s", a.baseURL, a.boardToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", a.boardToken, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", a.boardToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("ashby", a.boardToken, resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	var ashbyResp ashbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&ashbyResp); err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", a.boardToken, err)
	}

	match := filter.New(q)
	postings := make([]model.Posting, 0)
	for _, aj := range ashbyResp.Jobs {
		if !aj.IsListed {
			continue
		}
		p := model.Posting{
			Source:      "ashby",
			ID:          aj.ID,
			Title:       aj.Title,
			Company:     a.companyName,
			Location:    aj.Location,
			URL:         aj.JobURL,
			PostedAt:    aj.PublishedAt,
			Description: aj.DescriptionPlain,
		}
		if p.ID == "" {
			p.ID = aj.JobURL
		}
		if aj.EmploymentType != "" {
			p = p.WithExtra("employment_type", aj.EmploymentType)
		}
		if !match.Match(p) {
			continue
		}
		postings = append(postings, p)
		if q.Limit > 0 && len(postings) >= q.Limit {
			break
		}
	}

	a.logger.Debug("ashby board fetched",
		"board", a.boardToken,
		"total", len(ashbyResp.Jobs),
		"matched", len(postings),
	)
	return postings, nil
}
