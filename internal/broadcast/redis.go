// Package broadcast – Redis Pub/Sub broker.
package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisBroker relays events through Redis Pub/Sub so multiple server
// processes can share one topic. Events are JSON envelopes on the "wishes"
// channel; Redis offers no replay, which is fine because clients reconcile
// against a snapshot after every (re)connect.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects to Redis using a URL and verifies the connection.
func NewRedisBroker(ctx context.Context, redisURL string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisBroker{client: client}, nil
}

// NewRedisBrokerFromClient reuses an existing client (e.g. the one backing
// the Redis store).
func NewRedisBrokerFromClient(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

// Publish sends the JSON-encoded event on the shared topic.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, Topic, payload).Err()
}

// Subscribe opens a Pub/Sub subscription and adapts it to the Event channel.
// Undecodable messages are logged and skipped.
func (b *RedisBroker) Subscribe(ctx context.Context) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, Topic)
	// Force the subscription to be established before we hand it out.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Msg("broadcast: dropping undecodable event")
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()

	return &Subscription{
		C:      out,
		cancel: func() { _ = ps.Close() },
	}, nil
}

// Subscribers reports the topic's subscriber count as seen by Redis.
func (b *RedisBroker) Subscribers() int {
	res, err := b.client.PubSubNumSub(context.Background(), Topic).Result()
	if err != nil {
		return -1
	}
	return int(res[Topic])
}

// Close closes the underlying client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
