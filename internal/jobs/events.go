package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
)

// RedisEvents publishes and subscribes to per-job pub/sub channels.
type RedisEvents struct {
	client *redis.Client
	prefix string
	logger infra.Logger
}

func NewRedisEvents(client *redis.Client, prefix string, logger infra.Logger) *RedisEvents {
	return &RedisEvents{client: client, prefix: prefix, logger: logger}
}

func (e *RedisEvents) channel(jobID string) string {
	return e.prefix + jobID
}

func (e *RedisEvents) Publish(ctx context.Context, event domain.JobEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encode: %w", err)
	}
	if err := e.client.Publish(ctx, e.channel(event.JobID), payload).Err(); err != nil {
		return fmt.Errorf("events: publish: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed so no event published
// after it returns can be missed.
func (e *RedisEvents) Subscribe(ctx context.Context, jobID string) (*Subscription, error) {
	pubsub := e.client.Subscribe(ctx, e.channel(jobID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("events: subscribe: %w", err)
	}

	out := make(chan domain.JobEvent, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event domain.JobEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				e.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("events: drop malformed payload")
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return NewSubscription(out, pubsub.Close), nil
}

var (
	_ EventPublisher  = (*RedisEvents)(nil)
	_ EventSubscriber = (*RedisEvents)(nil)
)
