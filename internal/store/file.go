// Package store – file-backed backend.
//
// FileStore is the zero-dependency development fallback: the whole list is
// held in memory and rewritten to a single JSON array on every mutation.
// It is single-process, single-writer; concurrent multi-process writers
// would lose updates. Optional knobs cap the retained row count and
// rotate timestamped backups once the file passes a size threshold.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mooky-live/wishes-backend/internal/domain"
)

// FileOptions tunes retention for a FileStore. Zero values disable the
// corresponding behavior.
type FileOptions struct {
	MaxRows     int   // keep only the newest N wishes (0 = unlimited)
	MaxBytes    int64 // rotate a backup when the file exceeds this size
	KeepBackups int   // number of rotated backups to retain
}

// FileStore implements WishStore over a single JSON file.
type FileStore struct {
	path string
	opts FileOptions

	mu     sync.RWMutex
	wishes []domain.Wish
}

// NewFileStore loads (or creates) the data file and returns a ready store.
func NewFileStore(path string, opts FileOptions) (*FileStore, error) {
	s := &FileStore{path: path, opts: opts}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, s.writeFile([]domain.Wish{})
	}
	if err != nil {
		return nil, err
	}
	var arr []domain.Wish
	if err := json.Unmarshal(raw, &arr); err != nil {
		// A corrupt data file should not brick the dev server; start fresh.
		arr = nil
	}
	for _, w := range arr {
		if w.ID != "" {
			s.wishes = append(s.wishes, w)
		}
	}
	return s, nil
}

func (s *FileStore) backupDir() string {
	return filepath.Join(filepath.Dir(s.path), "backups")
}

func (s *FileStore) writeFile(arr []domain.Wish) error {
	data, err := json.MarshalIndent(arr, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// persistLocked applies the row cap, rotates a backup when the file is over
// the size threshold, and rewrites the data file. Callers hold s.mu.
func (s *FileStore) persistLocked() error {
	if s.opts.MaxRows > 0 && len(s.wishes) > s.opts.MaxRows {
		sorted := append([]domain.Wish(nil), s.wishes...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
		s.wishes = sorted[:s.opts.MaxRows]
	}

	if s.opts.KeepBackups > 0 && s.opts.MaxBytes > 0 {
		if fi, err := os.Stat(s.path); err == nil && fi.Size() > s.opts.MaxBytes {
			s.rotateBackup()
		}
	}

	return s.writeFile(s.wishes)
}

// rotateBackup copies the current file aside and trims old backups. Failures
// are ignored: backups are best-effort and must never block a write.
func (s *FileStore) rotateBackup() {
	dir := s.backupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(time.Now().UTC().Format(time.RFC3339Nano))
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, "wishes-"+stamp+".json"), data, 0o644)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "wishes-") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names))) // RFC3339 stamps sort lexically
	for _, name := range names[min(len(names), s.opts.KeepBackups):] {
		_ = os.Remove(filepath.Join(dir, name))
	}
}

// Create appends a new wish and persists the file.
func (s *FileStore) Create(ctx context.Context, name, message string) (*domain.Wish, error) {
	w := domain.Wish{
		ID:        uuid.NewString(),
		Name:      name,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.wishes
	s.wishes = append(s.wishes, w)
	if err := s.persistLocked(); err != nil {
		s.wishes = prev
		return nil, err
	}
	return &w, nil
}

// List returns all wishes newest first.
func (s *FileStore) List(ctx context.Context) ([]domain.Wish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]domain.Wish(nil), s.wishes...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListSince returns wishes strictly newer than t, oldest first.
func (s *FileStore) ListSince(ctx context.Context, t time.Time) ([]domain.Wish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Wish{}
	for _, w := range s.wishes {
		if w.CreatedAt.After(t) {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Count returns the number of retained wishes.
func (s *FileStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.wishes)), nil
}

// Delete removes a wish by exact id or unambiguous hex prefix.
func (s *FileStore) Delete(ctx context.Context, idOrPrefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, w := range s.wishes {
		if w.ID == idOrPrefix {
			idx = i
			break
		}
	}
	if idx == -1 && IsPrefixCandidate(idOrPrefix) {
		prefix := strings.ToLower(idOrPrefix)
		for i, w := range s.wishes {
			if strings.HasPrefix(strings.ToLower(w.ID), prefix) {
				if idx != -1 {
					return "", ErrAmbiguousID
				}
				idx = i
			}
		}
	}
	if idx == -1 {
		return "", ErrNotFound
	}

	deleted := s.wishes[idx]
	// Remove into a fresh slice so a persist failure can restore the old
	// view; the file and the mirror must never disagree.
	prev := s.wishes
	next := make([]domain.Wish, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	s.wishes = next
	if err := s.persistLocked(); err != nil {
		s.wishes = prev
		return "", err
	}
	return deleted.ID, nil
}

// Import appends wishes whose ids are not already present.
func (s *FileStore) Import(ctx context.Context, wishes []domain.Wish) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, len(s.wishes))
	for _, w := range s.wishes {
		known[w.ID] = struct{}{}
	}
	prev := s.wishes
	inserted := 0
	for _, w := range wishes {
		if _, dup := known[w.ID]; dup {
			continue
		}
		known[w.ID] = struct{}{}
		s.wishes = append(s.wishes, w)
		inserted++
	}
	if inserted > 0 {
		if err := s.persistLocked(); err != nil {
			s.wishes = prev
			return 0, err
		}
	}
	return inserted, nil
}

// Ping verifies the data file is still accessible.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

// Close is a no-op; the file is rewritten synchronously on each mutation.
func (s *FileStore) Close() error { return nil }
