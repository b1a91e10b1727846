// Package broadcast – Pusher Channels broker.
package broadcast

import (
	"context"

	pusher "github.com/pusher/pusher-http-go/v5"

	"github.com/mooky-live/wishes-backend/internal/domain"
)

// PusherBroker publishes events to Pusher Channels, the hosted fan-out the
// public site subscribes to directly from the browser. The server side is
// publish-only; a deployment using Pusher pairs it with the polling stream
// strategy for its own SSE endpoint.
type PusherBroker struct {
	client *pusher.Client
}

// PusherCredentials is the credential set for a Pusher Channels app.
type PusherCredentials struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
}

// Configured reports whether every credential field is present.
func (c PusherCredentials) Configured() bool {
	return c.AppID != "" && c.Key != "" && c.Secret != "" && c.Cluster != ""
}

// NewPusherBroker builds a broker from a full credential set.
func NewPusherBroker(creds PusherCredentials) *PusherBroker {
	return &PusherBroker{client: &pusher.Client{
		AppID:   creds.AppID,
		Key:     creds.Key,
		Secret:  creds.Secret,
		Cluster: creds.Cluster,
		Secure:  true,
	}}
}

// Publish triggers the event on the shared topic. The event type doubles as
// the Pusher event name, so browser clients bind to "wish:new" etc.
func (b *PusherBroker) Publish(ctx context.Context, ev Event) error {
	var payload interface{}
	switch ev.Type {
	case EventNewWish:
		payload = ev.Wish
	default:
		payload = domain.TypingSignal{Name: ev.Name, IsTyping: ev.Type == EventTypingStart, At: ev.At}
	}
	return b.client.Trigger(Topic, ev.Type, payload)
}

// Subscribe is unsupported: the HTTP API cannot consume events.
func (b *PusherBroker) Subscribe(ctx context.Context) (*Subscription, error) {
	return nil, ErrSubscribeUnsupported
}

// Subscribers is unknown server-side; presence lives in Pusher's own
// presence channels.
func (b *PusherBroker) Subscribers() int { return -1 }

// Close is a no-op; the client is stateless HTTP.
func (b *PusherBroker) Close() error { return nil }
