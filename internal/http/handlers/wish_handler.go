// Public wish endpoints.
//
// This file exposes the REST surface of the guestbook:
//   - POST /wish          (submit a wish)
//   - GET  /wish, /wishes (list all wishes, newest first)
//   - GET  /wish/count, /wishes/count
//   - POST /wish/typing   (typing presence signal, always succeeds)
//
// Handlers are transport-thin: they bind and normalize inputs, delegate to
// the guestbook service, and map service errors onto the shared error
// envelope. Validation semantics (length bounds, profanity, name defaults)
// live in the service layer.
package handlers

import (
	"context"
	"errors"
	"time"

	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mooky-live/wishes-backend/internal/auth"
	"github.com/mooky-live/wishes-backend/internal/broadcast"
	"github.com/mooky-live/wishes-backend/internal/domain"
	"github.com/mooky-live/wishes-backend/internal/services"
	"github.com/mooky-live/wishes-backend/internal/store"
)

// Guestbook is the service surface the handlers depend on. Implemented by
// *services.GuestbookService; narrowed to an interface so tests can stub it.
type Guestbook interface {
	Create(ctx context.Context, name, message string) (*domain.Wish, error)
	List(ctx context.Context) ([]domain.Wish, error)
	ListSince(ctx context.Context, t time.Time) ([]domain.Wish, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, idOrPrefix string) (string, error)
	Typing(ctx context.Context, name string, isTyping bool)
	Import(ctx context.Context, items []services.ImportWish) (int, error)
}

// StreamOptions parameterizes the SSE live feed endpoint.
type StreamOptions struct {
	// UseBroker switches the feed from poll-and-diff to broker subscription
	// (falling back to polling when the broker cannot subscribe).
	UseBroker bool
	// PollInterval is the poll-and-diff cadence. Zero means 3s.
	PollInterval time.Duration
}

// Handlers bundles the dependencies of all endpoint implementations.
type Handlers struct {
	svc    Guestbook
	admin  auth.Admin
	seed   auth.SeedToken
	broker broadcast.Broker // may be nil
	stream StreamOptions
}

// New constructs a Handlers instance bound to the given service and
// authorizers. broker may be nil when no fan-out backend is configured.
func New(svc Guestbook, admin auth.Admin, seed auth.SeedToken, broker broadcast.Broker, stream StreamOptions) *Handlers {
	if stream.PollInterval <= 0 {
		stream.PollInterval = 3 * time.Second
	}
	return &Handlers{svc: svc, admin: admin, seed: seed, broker: broker, stream: stream}
}

//
// DTOs
//

// PostWishRequest is the JSON payload for submitting a wish. Name is
// optional; a blank name is stored as "Anonymous".
type PostWishRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// PostWishResponse confirms a stored wish and returns its server-assigned
// identity so optimistic clients can reconcile.
type PostWishResponse struct {
	OK   bool         `json:"ok"`
	ID   string       `json:"id"`
	Wish *domain.Wish `json:"wish"`
}

// ListWishesResponse wraps the full wish list, newest first.
type ListWishesResponse struct {
	Wishes []domain.Wish `json:"wishes"`
}

// CountResponse carries the total number of stored wishes.
type CountResponse struct {
	Count int64 `json:"count"`
}

// TypingRequest is the JSON payload for the typing presence signal.
type TypingRequest struct {
	Name   string `json:"name"`
	Typing bool   `json:"typing"`
}

//
// Handlers
//

// PostWish validates and stores a new wish, returning 201 with the stored
// record. Validation failures map to 400 with a specific code; storage
// failures map to 503 so clients can retry.
func (h *Handlers) PostWish(c *gin.Context) {
	var req PostWishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	w, err := h.svc.Create(c.Request.Context(), req.Name, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			fail(c, http.StatusBadRequest, ErrCodeMessageEmpty, "message required")
		case errors.Is(err, services.ErrMessageTooLong):
			fail(c, http.StatusBadRequest, ErrCodeMessageTooLong, "message too long")
		case errors.Is(err, services.ErrProfanity):
			fail(c, http.StatusBadRequest, ErrCodeProfanity, "message rejected")
		default:
			fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "could not save wish")
		}
		return
	}

	ok(c, http.StatusCreated, PostWishResponse{OK: true, ID: w.ID, Wish: w})
}

// ListWishes returns every stored wish, newest first. Responses are marked
// no-store so polling clients always see fresh data.
func (h *Handlers) ListWishes(c *gin.Context) {
	wishes, err := h.svc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "could not load wishes")
		return
	}
	if wishes == nil {
		wishes = []domain.Wish{}
	}
	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusOK, ListWishesResponse{Wishes: wishes})
}

// CountWishes returns the total number of stored wishes.
func (h *Handlers) CountWishes(c *gin.Context) {
	n, err := h.svc.Count(c.Request.Context())
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "could not count wishes")
		return
	}
	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusOK, CountResponse{Count: n})
}

// Typing forwards a typing presence signal to the broadcast layer. The
// endpoint always answers 200: presence is cosmetic and a failed or absent
// broker must never surface as a client error.
func (h *Handlers) Typing(c *gin.Context) {
	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Tolerate malformed payloads; treat as an anonymous stop signal.
		req = TypingRequest{}
	}
	h.svc.Typing(c.Request.Context(), req.Name, req.Typing)
	ok(c, http.StatusOK, gin.H{"ok": true})
}

// deleteStatus maps store deletion errors to HTTP status and code. Unknown
// errors answer 500 with a fixed message; backend error text never reaches
// clients.
func deleteStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "no wish matches that id"
	case errors.Is(err, store.ErrAmbiguousID):
		return http.StatusConflict, ErrCodeConflict, "id prefix matches multiple wishes"
	default:
		return http.StatusInternalServerError, ErrCodeInternal, "could not delete wish"
	}
}
