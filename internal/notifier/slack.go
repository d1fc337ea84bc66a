package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ar3ac/jobhunter/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// Slack rejects messages with more than 50 blocks; two go to the header.
const slackPostingsPerMessage = 45

// SlackNotifier posts a digest of new postings to a Slack channel via an
// Incoming Webhook, splitting large digests across several messages.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	interval   time.Duration // pause between messages of one digest
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts digests to webhookURL.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		interval:   time.Second,
		logger:     logger,
	}
}

// Notify sends the digest. Returns an error only if every message fails.
func (s *SlackNotifier) Notify(ctx context.Context, postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	chunks := chunk(postings, slackPostingsPerMessage)
	failures := 0
	for i, c := range chunks {
		if i > 0 {
			if err := sleep(ctx, s.interval); err != nil {
				return err
			}
		}
		payload := buildPayload(c, len(postings), i+1, len(chunks))
		if err := s.send(ctx, payload); err != nil {
			s.logger.Error("slack notification failed", "part", i+1, "postings", len(c), "error", err)
			failures++
		}
	}

	if failures == len(chunks) {
		return fmt.Errorf("all %d slack messages failed", failures)
	}
	s.logger.Info("slack digest sent", "postings", len(postings), "messages", len(chunks), "failed", failures)
	return nil
}

// send posts one payload, retrying once on 429 after Retry-After.
func (s *SlackNotifier) send(ctx context.Context, payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		if err := sleep(ctx, retryAfter); err != nil {
			return err
		}
		if status, _, err = s.post(ctx, body); err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"` // notification fallback
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func buildPayload(postings []model.Posting, total, part, parts int) slackPayload {
	title := fmt.Sprintf("%d new job postings", total)
	if parts > 1 {
		title = fmt.Sprintf("%s (%d/%d)", title, part, parts)
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: title}},
		{Type: "divider"},
	}
	for _, p := range postings {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: postingLine(p)},
		})
	}
	return slackPayload{Text: title, Blocks: blocks}
}

// postingLine renders one posting as mrkdwn: a linked title, then company,
// location, source and search label when present.
func postingLine(p model.Posting) string {
	title := p.Title
	if title == "" {
		title = "(untitled)"
	}
	if p.URL != "" {
		title = fmt.Sprintf("<%s|%s>", p.URL, escapeMrkdwn(title))
	} else {
		title = escapeMrkdwn(title)
	}

	var details []string
	for _, v := range []string{p.Company, p.Location, p.Source, p.Extra[model.ExtraSearch]} {
		if v != "" {
			details = append(details, escapeMrkdwn(v))
		}
	}
	line := "*" + title + "*"
	if len(details) > 0 {
		line += "\n" + strings.Join(details, " · ")
	}
	if p.PostedAt != "" {
		line += "\nPosted: " + escapeMrkdwn(p.PostedAt)
	}
	return line
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeMrkdwn(s string) string { return mrkdwnEscaper.Replace(s) }

func chunk(postings []model.Posting, size int) [][]model.Posting {
	var out [][]model.Posting
	for len(postings) > size {
		out = append(out, postings[:size])
		postings = postings[size:]
	}
	return append(out, postings)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
