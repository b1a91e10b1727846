// Package store implements the durable wish collection behind a single
// contract with three interchangeable backends: relational (GORM over SQLite
// or Postgres), key-value (Redis sorted set + hashes), and a file-backed
// development fallback. Validation and broadcast concerns live above this
// layer; a store only persists already-normalized records.
package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/mooky-live/wishes-backend/internal/domain"
)

// Sentinel errors shared by all backends so callers can branch without
// knowing which backend is configured.
var (
	// ErrNotFound indicates the delete target does not exist, neither as an
	// exact id nor as an unambiguous prefix.
	ErrNotFound = errors.New("wish not found")

	// ErrAmbiguousID indicates a short-id prefix matched more than one wish.
	// The store never guesses which record was meant.
	ErrAmbiguousID = errors.New("ambiguous wish id prefix")
)

// idPrefixRE constrains the short-id fallback on delete: only 6–32 hex
// characters qualify for a prefix match. Anything shorter (or non-hex) is
// treated as a plain miss.
var idPrefixRE = regexp.MustCompile(`^[0-9a-fA-F]{6,32}$`)

// IsPrefixCandidate reports whether s may be resolved by prefix match.
func IsPrefixCandidate(s string) bool { return idPrefixRE.MatchString(s) }

// WishStore is the storage contract shared by every backend.
//
// Ordering guarantees:
//   - List returns wishes newest first (created_at descending, ties broken
//     by id for determinism).
//   - ListSince returns wishes strictly after the given timestamp, oldest
//     first. Records created exactly at the boundary are excluded so the
//     polling transport never re-delivers the boundary row.
type WishStore interface {
	// Create assigns an id and timestamp, persists the wish, and returns the
	// full record.
	Create(ctx context.Context, name, message string) (*domain.Wish, error)

	// List returns every wish, newest first. An empty store yields an empty
	// slice, not an error.
	List(ctx context.Context) ([]domain.Wish, error)

	// ListSince returns wishes with CreatedAt strictly after t, oldest first.
	ListSince(ctx context.Context, t time.Time) ([]domain.Wish, error)

	// Count returns the authoritative total without materializing the list.
	Count(ctx context.Context) (int64, error)

	// Delete removes a wish by exact id, falling back to an unambiguous
	// 6–32 hex prefix match. It returns the full id of the deleted record,
	// ErrNotFound when nothing matches, or ErrAmbiguousID when a prefix
	// matches more than one record.
	Delete(ctx context.Context, idOrPrefix string) (string, error)

	// Import inserts a batch of pre-built wishes, ignoring id collisions
	// ("on conflict do nothing"). It returns the number of rows actually
	// inserted. Used by the trusted bulk-import path, which may carry
	// explicit ids and timestamps for backfill.
	Import(ctx context.Context, wishes []domain.Wish) (int, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
