package track

import (
	"testing"
	"time"

	"github.com/vollcheck/watchy/internal/classify"
	"github.com/vollcheck/watchy/internal/watch"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer("/footage", classify.New(nil))
	now := time.Now()

	tests := []struct {
		name     string
		event    watch.RawEvent
		wantOp   OpKind
		wantDrop bool
	}{
		{
			name:   "created file inside root",
			event:  watch.RawEvent{Op: watch.OpCreated, Path: "/footage/a.mp4", SizeBytes: 10, Time: now},
			wantOp: OpTrack,
		},
		{
			name:   "created directory inside root",
			event:  watch.RawEvent{Op: watch.OpCreated, Path: "/footage/day1", IsDir: true, Time: now},
			wantOp: OpTrack,
		},
		{
			name:     "created outside root",
			event:    watch.RawEvent{Op: watch.OpCreated, Path: "/elsewhere/a.mp4", Time: now},
			wantDrop: true,
		},
		{
			name:     "event for the root itself",
			event:    watch.RawEvent{Op: watch.OpCreated, Path: "/footage", IsDir: true, Time: now},
			wantDrop: true,
		},
		{
			name:     "sibling path sharing the root prefix",
			event:    watch.RawEvent{Op: watch.OpCreated, Path: "/footage-backup/a.mp4", Time: now},
			wantDrop: true,
		},
		{
			name:   "deleted inside root",
			event:  watch.RawEvent{Op: watch.OpDeleted, Path: "/footage/a.mp4", Time: now},
			wantOp: OpUntrack,
		},
		{
			name:     "deleted outside root",
			event:    watch.RawEvent{Op: watch.OpDeleted, Path: "/elsewhere/a.mp4", Time: now},
			wantDrop: true,
		},
		{
			name:     "modification has no catalog effect",
			event:    watch.RawEvent{Op: watch.OpModified, Path: "/footage/a.mp4", Time: now},
			wantDrop: true,
		},
		{
			name:   "move within root",
			event:  watch.RawEvent{Op: watch.OpMoved, Path: "/footage/b.mp4", OldPath: "/footage/a.mp4", Time: now},
			wantOp: OpRelocate,
		},
		{
			name:   "move out of root degrades to untrack",
			event:  watch.RawEvent{Op: watch.OpMoved, Path: "/elsewhere/a.mp4", OldPath: "/footage/a.mp4", Time: now},
			wantOp: OpUntrack,
		},
		{
			name:   "move into root degrades to track",
			event:  watch.RawEvent{Op: watch.OpMoved, Path: "/footage/a.mp4", OldPath: "/elsewhere/a.mp4", Time: now},
			wantOp: OpTrack,
		},
		{
			name:     "move entirely outside root",
			event:    watch.RawEvent{Op: watch.OpMoved, Path: "/tmp/b", OldPath: "/tmp/a", Time: now},
			wantDrop: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := n.Normalize(tt.event)
			if tt.wantDrop {
				if ok {
					t.Fatalf("expected drop, got %s for %s", op.Kind, op.Path)
				}
				return
			}
			if !ok {
				t.Fatal("expected an operation, got drop")
			}
			if op.Kind != tt.wantOp {
				t.Errorf("expected %s, got %s", tt.wantOp, op.Kind)
			}
		})
	}
}

func TestNormalizeFields(t *testing.T) {
	n := NewNormalizer("/footage", classify.New(nil))
	now := time.Now()

	op, ok := n.Normalize(watch.RawEvent{
		Op: watch.OpMoved, Path: "/footage/g.mp4", OldPath: "/footage/f.mp4", SizeBytes: 42, Time: now,
	})
	if !ok {
		t.Fatal("expected relocate")
	}
	if op.OldPath != "/footage/f.mp4" || op.Path != "/footage/g.mp4" {
		t.Errorf("unexpected endpoints: %s -> %s", op.OldPath, op.Path)
	}
	if op.Entity != classify.KindVideo {
		t.Errorf("kind is recomputed from the destination: expected video, got %s", op.Entity)
	}
	if op.SizeBytes != 42 {
		t.Errorf("expected size 42, got %d", op.SizeBytes)
	}
	if !op.Time.Equal(now) {
		t.Errorf("expected event time carried through, got %v", op.Time)
	}

	// Untrack of a directory created then moved away: kind irrelevant
	op, ok = n.Normalize(watch.RawEvent{Op: watch.OpDeleted, Path: "/footage/day1", Time: now})
	if !ok || op.Kind != OpUntrack {
		t.Fatalf("expected untrack, got %v %v", op.Kind, ok)
	}
}
