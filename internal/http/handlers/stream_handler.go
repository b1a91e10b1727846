// Live feed endpoint.
//
// GET /wishes/stream serves Server-Sent Events. Every connection starts with
// an authoritative snapshot, then receives one event per new wish plus
// periodic stats updates. Two delivery strategies exist:
//
//   - poll: re-query the store on an interval and diff against the last seen
//     timestamp. Works with every storage backend and survives broker
//     outages; per-tick errors are swallowed so a transient store hiccup
//     does not kill connected clients.
//   - broker: subscribe to the broadcast backend and forward wish events as
//     they arrive. Falls back to polling when the backend cannot subscribe
//     (publish-only backends like Pusher).
//
// Events are single JSON objects in the data field, one of:
//
//	{"type":"snapshot","wishes":[...],"count":42}
//	{"type":"wish","wish":{...}}
//	{"type":"stats","count":42}
//	{"type":"error","error":"..."}
//
// Comment lines (":keepalive") are emitted periodically to hold idle proxies
// open.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mooky-live/wishes-backend/internal/broadcast"
	"github.com/mooky-live/wishes-backend/internal/domain"
	"github.com/mooky-live/wishes-backend/internal/http/middleware"
)

// keepaliveInterval is how often a comment line is written to idle streams.
const keepaliveInterval = 15 * time.Second

type streamEvent struct {
	Type   string        `json:"type"`
	Wishes []domain.Wish `json:"wishes,omitempty"`
	Wish   *domain.Wish  `json:"wish,omitempty"`
	Count  *int64        `json:"count,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func statsEvent(n int64) streamEvent {
	return streamEvent{Type: "stats", Count: &n}
}

// writeEvent marshals ev into a single SSE data frame and flushes it.
func writeEvent(w gin.ResponseWriter, ev streamEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func writeKeepalive(w gin.ResponseWriter) error {
	if _, err := io.WriteString(w, ":keepalive\n\n"); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// StreamWishes serves the SSE live feed. The connection stays open until the
// client disconnects or the server shuts down.
func (h *Handlers) StreamWishes(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeaderNow()

	done := middleware.StreamClientConnected()
	defer done()

	ctx := c.Request.Context()
	lg := middleware.LoggerFrom(c)

	// Authoritative snapshot first. When the store is unreachable the client
	// gets a single error event and the stream closes.
	wishes, err := h.svc.List(ctx)
	if err != nil {
		_ = writeEvent(c.Writer, streamEvent{Type: "error", Error: "wishes unavailable"})
		return
	}
	if wishes == nil {
		wishes = []domain.Wish{}
	}
	count := int64(len(wishes))
	if err := writeEvent(c.Writer, streamEvent{Type: "snapshot", Wishes: wishes, Count: &count}); err != nil {
		return
	}

	// List is newest first, so the first entry bounds what we have sent.
	var lastSeen time.Time
	if len(wishes) > 0 {
		lastSeen = wishes[0].CreatedAt
	}

	if h.stream.UseBroker && h.broker != nil {
		sub, err := h.broker.Subscribe(ctx)
		if err == nil {
			h.streamFromBroker(c, sub, count)
			return
		}
		lg.Debug().Err(err).Msg("broker subscription unavailable, polling instead")
	}
	h.streamFromPolling(c, lastSeen, count)
}

// streamFromBroker forwards broker wish events until the client disconnects
// or the subscription closes.
func (h *Handlers) streamFromBroker(c *gin.Context, sub *broadcast.Subscription, count int64) {
	defer sub.Close()

	keep := time.NewTicker(keepaliveInterval)
	defer keep.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.C:
			if !open {
				return
			}
			if ev.Type != broadcast.EventNewWish || ev.Wish == nil {
				continue
			}
			count++
			if err := writeEvent(c.Writer, streamEvent{Type: "wish", Wish: ev.Wish}); err != nil {
				return
			}
			if err := writeEvent(c.Writer, statsEvent(count)); err != nil {
				return
			}
		case <-keep.C:
			if err := writeKeepalive(c.Writer); err != nil {
				return
			}
		}
	}
}

// streamFromPolling diffs the store on an interval, emitting one wish event
// per row created strictly after lastSeen. A failed poll is logged and
// skipped; the stream stays open.
func (h *Handlers) streamFromPolling(c *gin.Context, lastSeen time.Time, count int64) {
	tick := time.NewTicker(h.stream.PollInterval)
	defer tick.Stop()
	keep := time.NewTicker(keepaliveInterval)
	defer keep.Stop()

	ctx := c.Request.Context()
	lg := middleware.LoggerFrom(c)

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			fresh, err := h.svc.ListSince(ctx, lastSeen)
			if err != nil {
				lg.Debug().Err(err).Msg("stream poll failed")
				continue
			}
			for i := range fresh {
				w := fresh[i]
				if err := writeEvent(c.Writer, streamEvent{Type: "wish", Wish: &w}); err != nil {
					return
				}
				if w.CreatedAt.After(lastSeen) {
					lastSeen = w.CreatedAt
				}
			}
			// Deletions change the total without producing a delta, so the
			// count is re-queried rather than tracked incrementally.
			if n, err := h.svc.Count(ctx); err == nil && n != count {
				count = n
				if err := writeEvent(c.Writer, statsEvent(count)); err != nil {
					return
				}
			}
		case <-keep.C:
			if err := writeKeepalive(c.Writer); err != nil {
				return
			}
		}
	}
}
