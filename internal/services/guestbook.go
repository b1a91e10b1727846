// Package services – GuestbookService.
//
// This file implements the single service behind every guestbook operation.
// Validation happens here, once, regardless of which storage backend is
// configured: handlers stay transport-thin and stores never re-validate.
// Broadcast and email side effects are strictly best-effort; they are logged
// and counted but can never fail the write that triggered them.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mooky-live/wishes-backend/internal/broadcast"
	"github.com/mooky-live/wishes-backend/internal/domain"
	"github.com/mooky-live/wishes-backend/internal/profanity"
	"github.com/mooky-live/wishes-backend/internal/store"
)

// Defaults applied when the corresponding GuestbookService field is zero.
const (
	DefaultMaxMessageRunes = 500
	DefaultMaxNameRunes    = 80

	// maxTypingNameRunes bounds the display name carried by typing signals.
	maxTypingNameRunes = 30

	// typingFallbackName is broadcast when a typing signal has no name.
	typingFallbackName = "Someone"

	// notifyTimeout caps the background email delivery per wish.
	notifyTimeout = 10 * time.Second
)

// Notifier is the outbound notification hook. A nil Notifier disables it.
type Notifier interface {
	NotifyNewWish(ctx context.Context, w *domain.Wish) error
}

// GuestbookService implements the guestbook use-cases over a WishStore and
// an optional broadcast Broker.
type GuestbookService struct {
	Store     store.WishStore
	Broker    broadcast.Broker   // nil disables fan-out
	Profanity *profanity.Filter  // nil disables the blocklist check
	Notifier  Notifier           // nil disables email notifications

	MaxMessageRunes int // 0 → DefaultMaxMessageRunes
	MaxNameRunes    int // 0 → DefaultMaxNameRunes
}

func (s *GuestbookService) maxMessage() int {
	if s.MaxMessageRunes > 0 {
		return s.MaxMessageRunes
	}
	return DefaultMaxMessageRunes
}

func (s *GuestbookService) maxName() int {
	if s.MaxNameRunes > 0 {
		return s.MaxNameRunes
	}
	return DefaultMaxNameRunes
}

// truncateRunes bounds s to max runes without splitting a rune.
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// normalizeName trims and bounds a display name, defaulting to Anonymous.
func (s *GuestbookService) normalizeName(name string) string {
	name = strings.TrimSpace(truncateRunes(name, s.maxName()))
	if name == "" {
		return domain.DefaultName
	}
	return name
}

// Create validates and persists a new wish, then fans it out.
//
// Validation order: trim → empty check → length bound → profanity. The
// broadcast publish and email notification run after the write and are
// swallowed on failure, so a create that reached the store always succeeds
// from the caller's point of view.
func (s *GuestbookService) Create(ctx context.Context, name, message string) (*domain.Wish, error) {
	name = s.normalizeName(name)
	message = strings.TrimSpace(message)

	if message == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(message)) > s.maxMessage() {
		return nil, ErrMessageTooLong
	}
	if s.Profanity != nil && s.Profanity.Contains(message) {
		return nil, ErrProfanity
	}

	w, err := s.Store.Create(ctx, name, message)
	if err != nil {
		return nil, err
	}
	wishesCreated.Inc()

	s.publish(ctx, broadcast.NewWish(w))

	if s.Notifier != nil {
		// Detached from the request: the caller should not wait on SMTP.
		go func(w domain.Wish) {
			nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := s.Notifier.NotifyNewWish(nctx, &w); err != nil {
				log.Warn().Err(err).Str("wish_id", w.ID).Msg("wish notification failed")
			}
		}(*w)
	}

	return w, nil
}

// publish fires ev at the broker, logging and counting failures.
func (s *GuestbookService) publish(ctx context.Context, ev broadcast.Event) {
	if s.Broker == nil {
		return
	}
	if err := s.Broker.Publish(ctx, ev); err != nil {
		broadcastFailures.Inc()
		log.Warn().Err(err).Str("event", ev.Type).Msg("broadcast publish failed")
	}
}

// List returns every wish, newest first.
func (s *GuestbookService) List(ctx context.Context) ([]domain.Wish, error) {
	return s.Store.List(ctx)
}

// ListSince returns wishes strictly newer than t, oldest first.
func (s *GuestbookService) ListSince(ctx context.Context, t time.Time) ([]domain.Wish, error) {
	return s.Store.ListSince(ctx, t)
}

// Count returns the authoritative wish total.
func (s *GuestbookService) Count(ctx context.Context) (int64, error) {
	return s.Store.Count(ctx)
}

// Delete removes a wish by id or unambiguous prefix and returns the full id
// of the removed record. Authorization is the handler's concern; storage
// sentinels (store.ErrNotFound, store.ErrAmbiguousID) pass through.
func (s *GuestbookService) Delete(ctx context.Context, idOrPrefix string) (string, error) {
	return s.Store.Delete(ctx, idOrPrefix)
}

// Typing broadcasts a typing start/stop signal. It never fails: an absent
// or erroring broker is a silent no-op from the caller's point of view.
func (s *GuestbookService) Typing(ctx context.Context, name string, isTyping bool) {
	name = strings.TrimSpace(truncateRunes(name, maxTypingNameRunes))
	if name == "" {
		name = typingFallbackName
	}
	s.publish(ctx, broadcast.Typing(name, isTyping))
}

// ImportWish is one row of a trusted bulk import. Unlike the public create
// path it may carry an explicit id and timestamp for backfill.
type ImportWish struct {
	ID        string
	Name      string
	Message   string
	CreatedAt time.Time // zero → now
}

// Import normalizes and inserts a batch of wishes, ignoring id collisions.
// Rows with empty messages are skipped; over-long messages are clamped to
// the configured bound rather than rejected, so a backfill of legacy rows
// never aborts midway. Returns the number of rows inserted.
func (s *GuestbookService) Import(ctx context.Context, items []ImportWish) (int, error) {
	now := time.Now().UTC()
	batch := make([]domain.Wish, 0, len(items))
	for _, it := range items {
		msg := strings.TrimSpace(truncateRunes(it.Message, s.maxMessage()))
		if msg == "" {
			continue
		}
		w := domain.Wish{
			ID:        it.ID,
			Name:      s.normalizeName(it.Name),
			Message:   msg,
			CreatedAt: it.CreatedAt,
		}
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		batch = append(batch, w)
	}
	if len(batch) == 0 {
		return 0, ErrEmptyImport
	}
	return s.Store.Import(ctx, batch)
}
