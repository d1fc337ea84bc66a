package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/ar3ac/jobhunter/internal/model"
)

// Ensure Source implements model.Source.
var _ model.Source = (*Source)(nil)

// Source is a decorator that retries transient fetch failures of the wrapped
// source with exponential backoff and jitter.
type Source struct {
	inner      model.Source
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// Wrap decorates inner with retry logic. maxRetries is the number of extra
// attempts after the first failure; baseDelay is the wait before the first
// retry and doubles on each subsequent one.
func Wrap(inner model.Source, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Source {
	return &Source{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (s *Source) Name() string { return s.inner.Name() }

// Fetch delegates to the wrapped source, retrying retryable errors up to
// maxRetries times. The last error is returned when all attempts fail.
func (s *Source) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	for attempt := 0; ; attempt++ {
		postings, err := s.inner.Fetch(ctx, q)
		if err == nil {
			return postings, nil
		}
		if attempt >= s.maxRetries || !isRetryable(err) {
			return nil, err
		}

		delay := s.backoffDelay(attempt+1, err)
		s.logger.Warn("retrying source after transient error",
			"source", s.inner.Name(),
			"attempt", attempt+1,
			"max_retries", s.maxRetries,
			"delay", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After from the server takes precedence.
func (s *Source) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := s.baseDelay << (attempt - 1)
	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether err is a transient failure: 429, 5xx, or a
// transport-level error. Cancellation and missing credentials never are.
func isRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, model.ErrMissingCredentials):
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return true
}
