package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ar3ac/jobhunter/internal/filter"
	"github.com/ar3ac/jobhunter/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// Ensure Greenhouse implements model.Source.
var _ model.Source = (*Greenhouse)(nil)

type greenhouseJob struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	FirstPublished string             `json:"first_published"`
	UpdatedAt      string             `json:"updated_at"`
	Content        string             `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// Greenhouse fetches one company's board from the Greenhouse public boards
// API. The API returns the whole board, so keywords and location are
// matched client-side.
type Greenhouse struct {
	name        string
	boardToken  string
	companyName string
	baseURL     string
	client      *http.Client
	logger      *slog.Logger
}

// NewGreenhouse creates a source named name for a Greenhouse board.
func NewGreenhouse(name, boardToken, companyName string, client *http.Client, logger *slog.Logger) *Greenhouse {
	return &Greenhouse{
		name:        name,
		boardToken:  boardToken,
		companyName: companyName,
		baseURL:     greenhouseBaseURL,
		client:      client,
		logger:      logger,
	}
}

func (g *Greenhouse) Name() string { return g.name }

func (g *Greenhouse) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", g.baseURL, g.boardToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", g.boardToken, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", g.boardToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("greenhouse", g.boardToken, resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	var ghResp greenhouseResponse
	if err := json.NewDecoder(resp.Body).Decode(&ghResp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", g.boardToken, err)
	}

	match := filter.New(q)
	postings := make([]model.Posting, 0)
	for _, gj := range ghResp.Jobs {
		p := model.Posting{
			Source:      "greenhouse",
			ID:          strconv.FormatInt(gj.ID, 10),
			Title:       gj.Title,
			Company:     g.companyName,
			Location:    gj.Location.Name,
			URL:         gj.AbsoluteURL,
			PostedAt:    gj.FirstPublished,
			Description: extractText(gj.Content),
		}
		if p.PostedAt == "" {
			p.PostedAt = gj.UpdatedAt
		}
		if !match.Match(p) {
			continue
		}
		postings = append(postings, p)
		if q.Limit > 0 && len(postings) >= q.Limit {
			break
		}
	}

	g.logger.Debug("greenhouse board fetched",
		"board", g.boardToken,
		"total", len(ghResp.Jobs),
		"matched", len(postings),
	)
	return postings, nil
}
