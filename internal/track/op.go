// Package track turns raw filesystem notifications into catalog writes.
// It holds the canonical operation set, the event normalizer that reduces
// raw events to it, and the engine that serializes writes to the catalog.
package track

import (
	"time"

	"github.com/vollcheck/watchy/internal/classify"
)

// OpKind is a canonical catalog operation tag.
type OpKind int

const (
	// OpTrack records a path as present.
	OpTrack OpKind = iota
	// OpRelocate moves a tracked path to a new one atomically.
	OpRelocate
	// OpUntrack records a path as gone.
	OpUntrack
)

// String returns a human-readable name for the operation.
func (k OpKind) String() string {
	switch k {
	case OpTrack:
		return "track"
	case OpRelocate:
		return "relocate"
	case OpUntrack:
		return "untrack"
	default:
		return "unknown"
	}
}

// Op is one canonical operation against the catalog.
type Op struct {
	Kind OpKind

	// Path is the subject path; for a relocate it is the destination.
	Path string

	// OldPath is the relocate source, empty otherwise.
	OldPath string

	// Entity is the classified kind, meaningful for track and relocate.
	Entity classify.Kind

	// SizeBytes is the file size at observation time, 0 for directories
	// and untracks.
	SizeBytes int64

	// Time is the observation timestamp applied to the catalog row.
	Time time.Time
}
