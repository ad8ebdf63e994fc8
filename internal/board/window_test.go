package board

import (
	"testing"
	"time"
)

func TestWindowPruneDropsOldEntries(t *testing.T) {
	base := time.Unix(1_700_000_000, 0).UTC()
	w := newWindow(100)

	w.add(base, 5)
	w.add(base.Add(30*time.Minute), 3)
	w.add(base.Add(59*time.Minute), 2)

	w.prune(base.Add(-time.Hour + 90*time.Minute)) // cutoff = base+30m

	if w.size() != 2 {
		t.Fatalf("expected 2 samples after prune, got %d", w.size())
	}
	if w.total() != 5 {
		t.Fatalf("expected sum 5 after prune, got %d", w.total())
	}
	oldest, ok := w.oldest()
	if !ok {
		t.Fatal("expected a front sample")
	}
	if oldest.Before(base.Add(30 * time.Minute)) {
		t.Fatalf("front sample %v older than cutoff", oldest)
	}
}

func TestWindowCapacityEvictsFront(t *testing.T) {
	base := time.Unix(1_700_000_000, 0).UTC()
	w := newWindow(3)

	for i := 0; i < 5; i++ {
		w.add(base.Add(time.Duration(i)*time.Second), 1)
	}

	if w.size() != 3 {
		t.Fatalf("expected capacity cap at 3, got %d", w.size())
	}
	if w.total() != 3 {
		t.Fatalf("expected sum 3, got %d", w.total())
	}
	oldest, _ := w.oldest()
	if !oldest.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("expected front at base+2s, got %v", oldest)
	}
}

func TestWindowResetClearsSum(t *testing.T) {
	w := newWindow(10)
	w.add(time.Now(), 7)
	w.reset()

	if w.size() != 0 || w.total() != 0 {
		t.Fatalf("expected empty window after reset, got size=%d sum=%d", w.size(), w.total())
	}
}
