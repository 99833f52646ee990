package track

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vollcheck/watchy/internal/catalog"
	"github.com/vollcheck/watchy/internal/classify"
)

func newTestEngine(t *testing.T) (*Engine, *catalog.Store) {
	t.Helper()

	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewEngine(store, nil), store
}

// Full lifecycle: create a directory and a file, rename the file, then
// delete the tree. Deleting a directory does not cascade in the catalog;
// each child goes absent through its own delete notification.
func TestEngineLifecycle(t *testing.T) {
	engine, store := newTestEngine(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	step := func(i int) time.Time { return base.Add(time.Duration(i) * time.Second) }

	ops := []Op{
		{Kind: OpTrack, Path: "/footage/D", Entity: classify.KindDirectory, Time: step(0)},
		{Kind: OpTrack, Path: "/footage/D/f.mp4", Entity: classify.KindVideo, SizeBytes: 100, Time: step(1)},
		{Kind: OpRelocate, Path: "/footage/D/g.mp4", OldPath: "/footage/D/f.mp4", Entity: classify.KindVideo, SizeBytes: 100, Time: step(2)},
		{Kind: OpUntrack, Path: "/footage/D/g.mp4", Time: step(3)},
		{Kind: OpUntrack, Path: "/footage/D", Time: step(4)},
	}
	for _, op := range ops {
		if err := engine.Submit(op); err != nil {
			t.Fatalf("submit %s %s failed: %v", op.Kind, op.Path, err)
		}
	}

	for _, path := range []string{"/footage/D", "/footage/D/f.mp4", "/footage/D/g.mp4"} {
		ent, err := store.GetByPath(path)
		if err != nil {
			t.Fatal(err)
		}
		if ent == nil {
			t.Fatalf("expected row for %s to survive", path)
		}
		if ent.Present {
			t.Errorf("expected %s to be absent", path)
		}
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.PresentCount != 0 {
		t.Errorf("expected present_count 0, got %d", stats.PresentCount)
	}
	if stats.TotalTracked != 3 {
		t.Errorf("expected total_tracked 3, got %d", stats.TotalTracked)
	}
}

// A relocate never leaves a state where both endpoints are present, nor
// one where the destination is missing while the source is already gone.
func TestEngineRelocateAtomicity(t *testing.T) {
	engine, store := newTestEngine(t)

	now := time.Now().UTC()
	if err := engine.Submit(Op{Kind: OpTrack, Path: "/footage/a.mp4", Entity: classify.KindVideo, Time: now}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Submit(Op{
			Kind: OpRelocate, Path: "/footage/b.mp4", OldPath: "/footage/a.mp4",
			Entity: classify.KindVideo, Time: now.Add(time.Second),
		})
	}()

	// Readers racing the relocate must always observe exactly one of the
	// two endpoints present.
	for i := 0; i < 50; i++ {
		a, err := store.GetByPath("/footage/a.mp4")
		if err != nil {
			t.Fatal(err)
		}
		b, err := store.GetByPath("/footage/b.mp4")
		if err != nil {
			t.Fatal(err)
		}

		aPresent := a != nil && a.Present
		bPresent := b != nil && b.Present
		if aPresent && bPresent {
			t.Fatal("observed both endpoints present during relocate")
		}
	}
	<-done

	a, _ := store.GetByPath("/footage/a.mp4")
	b, _ := store.GetByPath("/footage/b.mp4")
	if a == nil || a.Present {
		t.Error("expected source absent after relocate")
	}
	if b == nil || !b.Present {
		t.Error("expected destination present after relocate")
	}
}

// Concurrent producers hammering the same path must collapse to one row.
func TestEngineSerializesConcurrentWriters(t *testing.T) {
	engine, store := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				err := engine.Submit(Op{
					Kind: OpTrack, Path: "/footage/hot.mp4",
					Entity: classify.KindVideo, Time: time.Now().UTC(),
				})
				if err != nil {
					t.Errorf("submit failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	stats, err := store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalTracked != 1 {
		t.Errorf("expected a single row after concurrent tracks, got %d", stats.TotalTracked)
	}

	ent, err := store.GetByPath("/footage/hot.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if ent == nil || !ent.Present {
		t.Fatal("expected entity present")
	}
	if ent.LastSeenAt.Before(ent.FirstSeenAt) {
		t.Error("last_seen_at must never precede first_seen_at")
	}
}
