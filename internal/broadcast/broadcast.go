// Package broadcast fans newly created wishes and ephemeral typing signals
// out to subscribed clients. Delivery is at-least-once and best-effort: a
// failed publish must never fail the write that triggered it, and a client
// that reconnects re-synchronizes from an authoritative snapshot rather than
// relying on the channel for history.
//
// Three brokers implement the contract: an in-process hub, Redis Pub/Sub,
// and Pusher Channels (publish-only).
package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/mooky-live/wishes-backend/internal/domain"
)

// Event type names as delivered on the wire.
const (
	EventNewWish     = "wish:new"
	EventTypingStart = "wish:typing_start"
	EventTypingStop  = "wish:typing_stop"
)

// Topic is the shared channel all guestbook events travel on.
const Topic = "wishes"

// ErrSubscribeUnsupported is returned by publish-only brokers. Callers fall
// back to the polling transport for live delivery.
var ErrSubscribeUnsupported = errors.New("broker does not support subscribing")

// Event is a single broadcast message. Exactly one payload field is set
// depending on Type: Wish for EventNewWish, Name for the typing events.
//
// Delivery order across concurrent publishers is a hint, not a guarantee;
// consumers re-derive true order from each wish's CreatedAt.
type Event struct {
	Type string       `json:"type"`
	Wish *domain.Wish `json:"wish,omitempty"`
	Name string       `json:"name,omitempty"`
	At   time.Time    `json:"at,omitempty"`
}

// NewWish builds a wish:new event.
func NewWish(w *domain.Wish) Event {
	return Event{Type: EventNewWish, Wish: w, At: time.Now().UTC()}
}

// Typing builds a typing start/stop event for the given display name.
func Typing(name string, isTyping bool) Event {
	typ := EventTypingStop
	if isTyping {
		typ = EventTypingStart
	}
	return Event{Type: typ, Name: name, At: time.Now().UTC()}
}

// Subscription is a live event feed. Receive from C until it closes; call
// Close exactly once when done.
type Subscription struct {
	C      <-chan Event
	cancel func()
}

// Close tears down the subscription and releases broker-side state.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Broker is the pub/sub contract.
type Broker interface {
	// Publish delivers ev to all current subscribers. Errors are reported so
	// callers can log them, but callers must treat publishing as
	// fire-and-forget and never propagate the failure upward.
	Publish(ctx context.Context, ev Event) error

	// Subscribe registers a new consumer on the shared topic, or returns
	// ErrSubscribeUnsupported for publish-only brokers.
	Subscribe(ctx context.Context) (*Subscription, error)

	// Subscribers reports the current local subscriber count, or -1 when
	// the broker cannot observe membership.
	Subscribers() int

	// Close releases broker resources and ends all subscriptions.
	Close() error
}
