// Package messaging publishes change notifications to connected clients.
// Messages go out on a single Redis pub/sub channel; subscribers filter by
// topic.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:generate mockgen -source=messaging.go -destination=mocks/mocks.go -package=mocks Publisher

// Channel is the Redis channel every message is published on.
const Channel = "nebula"

// Publisher sends change notifications to connected clients.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Message is the envelope written to the channel.
type Message struct {
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Site      string    `json:"site,omitempty"`
	Data      any       `json:"data"`
}

// RedisPublisher publishes JSON envelopes through Redis pub/sub.
type RedisPublisher struct {
	client redis.UniversalClient
	site   string
	now    func() time.Time
}

// NewRedisPublisher publishes on Channel, tagging messages with site.
func NewRedisPublisher(client redis.UniversalClient, site string) *RedisPublisher {
	return &RedisPublisher{client: client, site: site, now: time.Now}
}

// Publish sends payload as a message of the given topic.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(Message{
		Topic:     topic,
		Timestamp: p.now().UTC(),
		Site:      p.site,
		Data:      payload,
	})
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}
	if err := p.client.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Nop drops every message. Used when Redis is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
