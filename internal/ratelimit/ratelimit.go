package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ar3ac/jobhunter/internal/model"
)

// Limiter enforces a minimum delay between requests sharing a key, usually
// the backend host. Callers may wait concurrently; each reserves the next
// free slot under the lock and sleeps outside it.
type Limiter struct {
	mu       sync.Mutex
	next     map[string]time.Time // earliest start of the next request per key
	minDelay time.Duration
}

// NewLimiter creates a limiter spacing requests to the same key by minDelay.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{
		next:     make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until the caller's slot for key arrives. It returns an error
// if ctx is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	now := time.Now()
	slot := l.next[key]
	if slot.Before(now) {
		slot = now
	}
	l.next[key] = slot.Add(l.minDelay)
	l.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Ensure Source implements model.Source.
var _ model.Source = (*Source)(nil)

// Source is a decorator that waits on a shared Limiter before delegating to
// the wrapped source.
type Source struct {
	inner   model.Source
	limiter *Limiter
	key     string
}

// Wrap decorates inner so every fetch first waits for key's slot. Sources
// hitting the same backend should share one limiter and key.
func Wrap(inner model.Source, limiter *Limiter, key string) *Source {
	return &Source{inner: inner, limiter: limiter, key: key}
}

func (s *Source) Name() string { return s.inner.Name() }

func (s *Source) Fetch(ctx context.Context, q model.Query) ([]model.Posting, error) {
	if err := s.limiter.Wait(ctx, s.key); err != nil {
		return nil, err
	}
	return s.inner.Fetch(ctx, q)
}
