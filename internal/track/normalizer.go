package track

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/vollcheck/watchy/internal/classify"
	"github.com/vollcheck/watchy/internal/watch"
)

// Normalizer reduces raw filesystem events to canonical operations.
// Stateless per-event classification: sequencing correctness for a given
// path is the engine's job, not the normalizer's.
type Normalizer struct {
	root       string
	classifier *classify.Classifier
}

// NewNormalizer creates a Normalizer for the given watched root. The root
// must already be absolute and cleaned.
func NewNormalizer(root string, classifier *classify.Classifier) *Normalizer {
	return &Normalizer{root: filepath.Clean(root), classifier: classifier}
}

// Normalize maps one raw event to a canonical operation. The second
// return is false when the event has no catalog effect (drop): pure
// modifications, events for the root itself, and paths outside the root.
func (n *Normalizer) Normalize(ev watch.RawEvent) (Op, bool) {
	now := ev.Time
	if now.IsZero() {
		now = time.Now()
	}

	switch ev.Op {
	case watch.OpCreated:
		if !n.inRoot(ev.Path) {
			return Op{}, false
		}
		return Op{
			Kind:      OpTrack,
			Path:      filepath.Clean(ev.Path),
			Entity:    n.classifier.Classify(ev.Path, ev.IsDir),
			SizeBytes: ev.SizeBytes,
			Time:      now,
		}, true

	case watch.OpDeleted:
		if !n.inRoot(ev.Path) {
			return Op{}, false
		}
		return Op{Kind: OpUntrack, Path: filepath.Clean(ev.Path), Time: now}, true

	case watch.OpMoved:
		srcIn := n.inRoot(ev.OldPath)
		dstIn := n.inRoot(ev.Path)
		switch {
		case srcIn && dstIn:
			return Op{
				Kind:      OpRelocate,
				Path:      filepath.Clean(ev.Path),
				OldPath:   filepath.Clean(ev.OldPath),
				Entity:    n.classifier.Classify(ev.Path, ev.IsDir),
				SizeBytes: ev.SizeBytes,
				Time:      now,
			}, true
		case srcIn:
			// Destination left the root: from our point of view the
			// source is simply gone.
			return Op{Kind: OpUntrack, Path: filepath.Clean(ev.OldPath), Time: now}, true
		case dstIn:
			// Source arrived from outside the root: a plain appearance.
			return Op{
				Kind:      OpTrack,
				Path:      filepath.Clean(ev.Path),
				Entity:    n.classifier.Classify(ev.Path, ev.IsDir),
				SizeBytes: ev.SizeBytes,
				Time:      now,
			}, true
		default:
			return Op{}, false
		}

	default: // watch.OpModified and anything unrecognized
		return Op{}, false
	}
}

// inRoot reports whether path lies strictly under the watched root.
// The root itself is not a catalog entity.
func (n *Normalizer) inRoot(path string) bool {
	if path == "" {
		return false
	}
	path = filepath.Clean(path)
	if path == n.root {
		return false
	}
	return strings.HasPrefix(path, n.root+string(filepath.Separator))
}
