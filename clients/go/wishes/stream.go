package wishes

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Event types carried on the live feed.
const (
	EventSnapshot = "snapshot"
	EventWish     = "wish"
	EventStats    = "stats"
	EventError    = "error"
)

// Event is one live-feed frame. Exactly one of the payload fields is set,
// according to Type.
type Event struct {
	Type   string `json:"type"`
	Wishes []Wish `json:"wishes,omitempty"`
	Wish   *Wish  `json:"wish,omitempty"`
	Count  *int64 `json:"count,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Stream is an open live-feed connection. Events arrive on C until the
// context passed to (*Client).Stream is cancelled or the server closes the
// connection, after which C is closed and Err reports why.
type Stream struct {
	C <-chan Event

	cancel context.CancelFunc
	err    error
	done   chan struct{}
}

// Close terminates the stream. Safe to call more than once.
func (s *Stream) Close() {
	s.cancel()
	<-s.done
}

// Err returns the terminal error, if any, once C is closed. A clean
// cancellation returns nil.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Stream opens the live feed. The server sends a snapshot of all current
// wishes first, then one event per new wish, with stats events interleaved.
// Keepalive comments are consumed internally and never surface as events.
func (c *Client) Stream(ctx context.Context) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/wishes/stream", nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The default client timeout would kill a long-lived stream, so the
	// stream uses a dedicated transport-only client.
	httpc := &http.Client{Transport: c.transport()}
	resp, err := httpc.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("wishes: stream returned status %d", resp.StatusCode)
	}

	events := make(chan Event)
	s := &Stream{C: events, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		var data strings.Builder

		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if data.Len() == 0 {
					continue
				}
				var ev Event
				if err := json.Unmarshal([]byte(data.String()), &ev); err == nil {
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
				data.Reset()
			case strings.HasPrefix(line, ":"):
				// keepalive comment
			case strings.HasPrefix(line, "data:"):
				data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			s.err = err
		}
	}()

	return s, nil
}

func (c *Client) transport() http.RoundTripper {
	if c.HTTPClient != nil && c.HTTPClient.Transport != nil {
		return c.HTTPClient.Transport
	}
	return http.DefaultTransport
}
