// Package alert announces that a scraped page no longer looks the way the
// extractors expect.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// KindStructureChanged is sent when a page parsed fine but held no tables.
const KindStructureChanged = "structure_changed"

// Event is one alert.
type Event struct {
	Kind   string    `json:"kind"`
	Symbol string    `json:"symbol"`
	URL    string    `json:"url"`
	At     time.Time `json:"at"`
}

// Publisher delivers events somewhere an operator will see them.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// RedisPublisher publishes events as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects lazily; nothing is dialed until the first Publish.
func NewRedisPublisher(opts *redis.Options, channel string) *RedisPublisher {
	return &RedisPublisher{
		client:  redis.NewClient(opts),
		channel: channel,
	}
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish alert to %s: %w", p.channel, err)
	}
	return nil
}

// Subscribe returns a subscription to the alert channel. The caller closes it.
func (p *RedisPublisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.client.Subscribe(ctx, p.channel)
}

// Close releases the Redis connection pool.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Decode parses an event received from the channel.
func Decode(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode alert: %w", err)
	}
	return ev, nil
}
