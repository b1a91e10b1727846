package wishes

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mooky-live/wishes-backend/internal/profanity"
)

// Reconciler merges a cached list, authoritative snapshots, live-feed deltas,
// and local optimistic writes into one deduplicated newest-first view. All
// methods are safe for concurrent use; one Reconciler serves one client
// session.
type Reconciler struct {
	mu     sync.Mutex
	filter *profanity.Filter
	list   []Wish
	known  map[string]struct{}

	// count tracks the server-reported total once a stats event has been
	// seen; before that the list length stands in for it.
	count     int64
	haveStats bool
}

// NewReconciler creates an empty Reconciler using the default blocklist.
func NewReconciler() *Reconciler {
	return NewReconcilerWithFilter(profanity.Default())
}

// NewReconcilerWithFilter creates an empty Reconciler with a custom
// profanity filter. A nil filter disables the client-side re-check.
func NewReconcilerWithFilter(f *profanity.Filter) *Reconciler {
	return &Reconciler{filter: f, known: make(map[string]struct{})}
}

// Prime loads a previously cached list so the client can render before any
// network data arrives. Entries are deduplicated and re-filtered.
func (r *Reconciler) Prime(cached []Wish) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range cached {
		r.insertLocked(w)
	}
	r.sortLocked()
}

// ApplySnapshot replaces the current view with an authoritative full list.
// An empty snapshot never clobbers a non-empty view: a transient empty read
// racing a live backend must not blank the screen.
func (r *Reconciler) ApplySnapshot(ws []Wish) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(ws) == 0 && len(r.list) > 0 {
		return
	}
	r.list = r.list[:0]
	r.known = make(map[string]struct{}, len(ws))
	for _, w := range ws {
		r.insertLocked(w)
	}
	r.sortLocked()
}

// ApplyDelta merges a single new wish. Duplicate ids are dropped silently,
// which covers a wish arriving via both the stream and the broadcast channel
// as well as the authoritative echo of a confirmed optimistic entry. It
// reports whether the wish was added.
func (r *Reconciler) ApplyDelta(w Wish) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.insertLocked(w) {
		return false
	}
	r.sortLocked()
	if r.haveStats {
		r.count++
	}
	return true
}

// Apply dispatches a live-feed event to the matching transition.
func (r *Reconciler) Apply(ev Event) {
	switch ev.Type {
	case EventSnapshot:
		r.ApplySnapshot(ev.Wishes)
		if ev.Count != nil {
			r.mu.Lock()
			// The empty-snapshot guard extends to the count: a transient
			// empty read must not zero a non-empty view's total.
			if len(ev.Wishes) > 0 || len(r.list) == 0 {
				r.count = *ev.Count
				r.haveStats = true
			}
			r.mu.Unlock()
		}
	case EventWish:
		if ev.Wish != nil {
			r.ApplyDelta(*ev.Wish)
		}
	case EventStats:
		if ev.Count != nil {
			r.mu.Lock()
			r.count = *ev.Count
			r.haveStats = true
			r.mu.Unlock()
		}
	}
}

// OptimisticCreate inserts a synthesized wish with a placeholder id before
// the server has responded, and returns that id. Callers pass it to
// ConfirmCreate or RejectCreate once the create call settles.
func (r *Reconciler) OptimisticCreate(name, message string) string {
	if name == "" {
		name = "Anonymous"
	}
	w := Wish{
		ID:        "tmp-" + uuid.NewString(),
		Name:      name,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, w)
	r.known[w.ID] = struct{}{}
	r.sortLocked()
	if r.haveStats {
		r.count++
	}
	return w.ID
}

// ConfirmCreate re-keys an optimistic entry to the authoritative record from
// the create response. If the real record already arrived through the delta
// path the placeholder is simply dropped.
func (r *Reconciler) ConfirmCreate(tempID string, w Wish) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.removeLocked(tempID)
	if _, dup := r.known[w.ID]; dup {
		// The echo already raised the count; dropping the placeholder must
		// give back its optimistic increment or the wish counts twice.
		if removed && r.haveStats {
			r.count--
		}
		r.sortLocked()
		return
	}
	r.list = append(r.list, w)
	r.known[w.ID] = struct{}{}
	r.sortLocked()
}

// RejectCreate removes a failed optimistic entry.
func (r *Reconciler) RejectCreate(tempID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removeLocked(tempID) && r.haveStats {
		r.count--
	}
}

// OptimisticDelete removes a wish from the view before the server confirms
// the deletion, returning the removed record so a failed call can roll back.
func (r *Reconciler) OptimisticDelete(id string) (Wish, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.list {
		if w.ID == id {
			r.list = append(r.list[:i], r.list[i+1:]...)
			delete(r.known, id)
			if r.haveStats {
				r.count--
			}
			return w, true
		}
	}
	return Wish{}, false
}

// RollbackDelete re-inserts a wish removed by OptimisticDelete after the
// server rejected the deletion.
func (r *Reconciler) RollbackDelete(w Wish) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.known[w.ID]; dup {
		return
	}
	r.list = append(r.list, w)
	r.known[w.ID] = struct{}{}
	r.sortLocked()
	if r.haveStats {
		r.count++
	}
}

// Wishes returns a copy of the current view, newest first.
func (r *Reconciler) Wishes() []Wish {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Wish, len(r.list))
	copy(out, r.list)
	return out
}

// Count returns the displayed total: the last server-reported count adjusted
// for in-flight optimistic operations, or the list length before any stats
// event has arrived.
func (r *Reconciler) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.haveStats {
		return r.count
	}
	return int64(len(r.list))
}

// insertLocked adds w unless its id is already known or its message fails
// the client-side profanity re-check. Callers hold r.mu and re-sort after.
func (r *Reconciler) insertLocked(w Wish) bool {
	if _, dup := r.known[w.ID]; dup {
		return false
	}
	if r.filter != nil && r.filter.Contains(w.Message) {
		return false
	}
	r.list = append(r.list, w)
	r.known[w.ID] = struct{}{}
	return true
}

func (r *Reconciler) removeLocked(id string) bool {
	for i, w := range r.list {
		if w.ID == id {
			r.list = append(r.list[:i], r.list[i+1:]...)
			delete(r.known, id)
			return true
		}
	}
	return false
}

// sortLocked orders newest first. The sort is stable so wishes sharing a
// timestamp keep their arrival order.
func (r *Reconciler) sortLocked() {
	sort.SliceStable(r.list, func(i, j int) bool {
		return r.list[i].CreatedAt.After(r.list[j].CreatedAt)
	})
}
