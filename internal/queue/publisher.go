package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Publisher enqueues job envelopes. Production traffic comes from upstream
// services; this side is used by tooling and tests.
type Publisher struct {
	client *redis.Client
	prefix string
}

// NewPublisher constructs a Publisher sharing the consumer's key scheme.
func NewPublisher(client *redis.Client, prefix string) Publisher {
	return Publisher{client: client, prefix: prefix}
}

// Publish wraps payload in an envelope and pushes it onto the named queue.
func (p Publisher) Publish(ctx context.Context, name string, payload any) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	job := Envelope{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    encoded,
		EnqueuedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	if err := p.client.RPush(ctx, p.prefix+":queue:"+name, raw).Err(); err != nil {
		return "", fmt.Errorf("push job: %w", err)
	}
	return job.ID, nil
}
