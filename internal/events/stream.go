package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream facts are appended to.
const DefaultStream = "ledger:facts"

// StreamPublisher appends facts to a Redis stream so observers can tail the
// ledger's history without coupling to the core.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

// NewStreamPublisher builds a Redis stream publisher. An empty stream name
// falls back to DefaultStream.
func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamPublisher{client: client, stream: stream}
}

// Publish appends the fact to the stream via XADD.
func (p *StreamPublisher) Publish(ctx context.Context, fact Fact) error {
	details, err := json.Marshal(fact.Details)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"kind":        fact.Kind,
			"actor":       fact.Actor,
			"amount":      fact.Amount,
			"details":     string(details),
			"occurred_at": fact.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
}
