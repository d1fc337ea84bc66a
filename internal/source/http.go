package source

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ar3ac/jobhunter/internal/model"
)

// defaultTimeout bounds a single request to a job board.
const defaultTimeout = 30 * time.Second

// statusError builds the error returned for a non-200 response so the retry
// decorator can inspect the status and Retry-After.
func statusError(source, target string, status int, retryAfter string) error {
	return &model.HTTPError{
		StatusCode: status,
		RetryAfter: parseRetryAfter(retryAfter),
		Err:        fmt.Errorf("%s fetch for %s: unexpected status %d", source, target, status),
	}
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// Entities are unescaped first (Greenhouse double-encodes), then tags are
// stripped and whitespace collapsed.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, " ")
	return strings.Join(strings.Fields(plain), " ")
}

// keywordString joins the non-blank keywords with single spaces, the form
// search APIs expect in their free-text parameter.
func keywordString(keywords []string) string {
	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	return strings.Join(kws, " ")
}
