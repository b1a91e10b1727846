package wishes

import (
	"testing"
	"time"
)

func wishAt(id, msg string, t time.Time) Wish {
	return Wish{ID: id, Name: "Anonymous", Message: msg, CreatedAt: t}
}

func ids(ws []Wish) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.ID
	}
	return out
}

func TestReconciler_DeltaDedup(t *testing.T) {
	r := NewReconciler()
	w := wishAt("aaa", "hello", time.Now())

	if !r.ApplyDelta(w) {
		t.Fatal("first delta should be added")
	}
	if r.ApplyDelta(w) {
		t.Fatal("duplicate delta should be dropped")
	}
	if got := len(r.Wishes()); got != 1 {
		t.Fatalf("want 1 visible entry, got %d", got)
	}
}

func TestReconciler_EmptySnapshotGuard(t *testing.T) {
	r := NewReconciler()
	r.Prime([]Wish{wishAt("aaa", "cached", time.Now())})

	r.ApplySnapshot(nil)

	if got := len(r.Wishes()); got != 1 {
		t.Fatalf("empty snapshot wiped the cached view, got %d entries", got)
	}
}

func TestReconciler_SnapshotReplacesView(t *testing.T) {
	r := NewReconciler()
	now := time.Now()
	r.Prime([]Wish{wishAt("old", "cached", now.Add(-time.Hour))})

	r.ApplySnapshot([]Wish{
		wishAt("b", "second", now.Add(-time.Minute)),
		wishAt("a", "first", now),
	})

	got := ids(r.Wishes())
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("want [a b] newest first, got %v", got)
	}
}

func TestReconciler_OptimisticCreateConfirm(t *testing.T) {
	r := NewReconciler()
	now := time.Now()

	tempID := r.OptimisticCreate("Amy", "Happy day!")
	if got := len(r.Wishes()); got != 1 {
		t.Fatalf("optimistic entry not visible, got %d", got)
	}

	real := wishAt("deadbeef", "Happy day!", now)
	r.ConfirmCreate(tempID, real)

	ws := r.Wishes()
	if len(ws) != 1 || ws[0].ID != "deadbeef" {
		t.Fatalf("want single entry keyed by server id, got %v", ids(ws))
	}

	// Authoritative echo of the confirmed wish must not duplicate it.
	if r.ApplyDelta(real) {
		t.Fatal("echo delta should be dropped")
	}
	if got := len(r.Wishes()); got != 1 {
		t.Fatalf("echo duplicated the entry, got %d", got)
	}
}

func TestReconciler_ConfirmAfterEchoDropsPlaceholder(t *testing.T) {
	r := NewReconciler()
	real := wishAt("deadbeef", "hi", time.Now())

	tempID := r.OptimisticCreate("", "hi")
	r.ApplyDelta(real) // echo races the create response
	r.ConfirmCreate(tempID, real)

	ws := r.Wishes()
	if len(ws) != 1 || ws[0].ID != "deadbeef" {
		t.Fatalf("want only the server record, got %v", ids(ws))
	}
}

func TestReconciler_ConfirmAfterEchoCountsOnce(t *testing.T) {
	r := NewReconciler()
	n := int64(5)
	r.Apply(Event{Type: EventStats, Count: &n})

	tempID := r.OptimisticCreate("", "hi")
	r.ApplyDelta(wishAt("deadbeef", "hi", time.Now())) // echo races the create response
	r.ConfirmCreate(tempID, wishAt("deadbeef", "hi", time.Now()))

	if got := r.Count(); got != 6 {
		t.Fatalf("one created wish must raise the count by exactly 1: want 6, got %d", got)
	}
}

func TestReconciler_RejectCreateRemovesPlaceholder(t *testing.T) {
	r := NewReconciler()
	tempID := r.OptimisticCreate("", "oops")
	r.RejectCreate(tempID)
	if got := len(r.Wishes()); got != 0 {
		t.Fatalf("rejected entry still visible, got %d", got)
	}
}

func TestReconciler_OptimisticDeleteRollback(t *testing.T) {
	r := NewReconciler()
	w := wishAt("aaa", "keep me", time.Now())
	r.ApplyDelta(w)

	removed, ok := r.OptimisticDelete("aaa")
	if !ok || removed.Message != "keep me" {
		t.Fatalf("delete did not return the removed record: %+v ok=%v", removed, ok)
	}
	if got := len(r.Wishes()); got != 0 {
		t.Fatalf("entry still visible after optimistic delete, got %d", got)
	}

	r.RollbackDelete(removed)
	ws := r.Wishes()
	if len(ws) != 1 || ws[0].ID != "aaa" {
		t.Fatalf("rollback did not restore the entry, got %v", ids(ws))
	}
}

func TestReconciler_ProfanityRecheck(t *testing.T) {
	r := NewReconciler()
	r.ApplyDelta(wishAt("bad", "you fuck", time.Now()))
	if got := len(r.Wishes()); got != 0 {
		t.Fatalf("profane delta slipped through, got %d entries", got)
	}
}

func TestReconciler_OrderingStableOnTies(t *testing.T) {
	r := NewReconciler()
	now := time.Now()
	r.ApplyDelta(wishAt("first", "a", now))
	r.ApplyDelta(wishAt("second", "b", now))
	r.ApplyDelta(wishAt("newer", "c", now.Add(time.Second)))

	got := ids(r.Wishes())
	want := []string{"newer", "first", "second"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v, got %v", want, got)
		}
	}
}

func TestReconciler_CountFollowsStats(t *testing.T) {
	r := NewReconciler()
	r.ApplyDelta(wishAt("a", "x", time.Now()))
	if got := r.Count(); got != 1 {
		t.Fatalf("want list-length count 1, got %d", got)
	}

	n := int64(41)
	r.Apply(Event{Type: EventStats, Count: &n})
	r.ApplyDelta(wishAt("b", "y", time.Now()))
	if got := r.Count(); got != 42 {
		t.Fatalf("want stats count 42, got %d", got)
	}

	r.OptimisticDelete("b")
	if got := r.Count(); got != 41 {
		t.Fatalf("want decremented count 41, got %d", got)
	}
}
