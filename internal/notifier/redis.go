package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ar3ac/jobhunter/internal/model"
)

// Ensure RedisNotifier implements model.Notifier.
var _ model.Notifier = (*RedisNotifier)(nil)

// DefaultStream is the stream new postings are published to when none is configured.
const DefaultStream = "jobhunter:postings"

// RedisNotifier publishes each new posting as an entry on a Redis stream so
// other processes can consume them.
type RedisNotifier struct {
	client *redis.Client
	stream string
	maxLen int64 // approximate stream cap, zero for unbounded
	logger *slog.Logger
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisNotifier returns a notifier appending to stream on client.
func NewRedisNotifier(client *redis.Client, stream string, logger *slog.Logger) *RedisNotifier {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisNotifier{client: client, stream: stream, maxLen: 10000, logger: logger}
}

// Notify appends all postings in one pipeline. The first failed command is
// returned.
func (n *RedisNotifier) Notify(ctx context.Context, postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	cmds, err := n.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range postings {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: n.stream,
				MaxLen: n.maxLen,
				Approx: n.maxLen > 0,
				Values: streamValues(p),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publishing %d postings to %s: %w", len(postings), n.stream, err)
	}

	n.logger.Info("postings published", "stream", n.stream, "entries", len(cmds))
	return nil
}

// streamValues flattens a posting into stream entry fields. Empty fields are
// omitted; Extra entries are prefixed with "extra.".
func streamValues(p model.Posting) map[string]any {
	values := map[string]any{
		"event_id": uuid.NewString(),
		"source":   p.Source,
	}
	set := func(k, v string) {
		if v != "" {
			values[k] = v
		}
	}
	set("id", p.ID)
	set("title", p.Title)
	set("company", p.Company)
	set("location", p.Location)
	set("url", p.URL)
	set("posted_at", p.PostedAt)
	if p.FetchedAt != nil {
		values["fetched_at"] = p.FetchedAt.UTC().Format(time.RFC3339)
	}
	for k, v := range p.Extra {
		set("extra."+k, v)
	}
	return values
}
