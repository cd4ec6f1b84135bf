// Package events publishes domain events to Redis pub/sub for downstream
// consumers (gateway SSE, notification pipeline). Publishing is best-effort:
// a failed publish is logged and never fails the originating operation.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	ChannelLeadMatched    = "EVENT_LEAD_MATCHED"
	ChannelQuoteSubmitted = "EVENT_QUOTE_SUBMITTED"
)

// Publisher emits one named domain event with a JSON payload.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload map[string]string)
}

// Redis publishes events over Redis pub/sub.
type Redis struct {
	rdb *redis.Client
}

// NewRedis wraps an already-connected client.
func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (p *Redis) Publish(ctx context.Context, channel string, payload map[string]string) {
	body := make(map[string]string, len(payload)+1)
	body["type"] = channel
	for k, v := range payload {
		body[k] = v
	}
	event, _ := json.Marshal(body)
	if err := p.rdb.Publish(ctx, channel, event).Err(); err != nil {
		slog.Warn("event publish failed", "channel", channel, "err", err)
	}
}

// Noop drops every event. Used when no Redis URL is configured and in tests.
type Noop struct{}

func (Noop) Publish(context.Context, string, map[string]string) {}
