// Package reconcile refreshes the catalog from a full walk of the
// watched root. A pass is additive only: it guards against creations the
// watcher missed, while disappearance detection stays with live delete
// notifications.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/vollcheck/watchy/internal/classify"
	"github.com/vollcheck/watchy/internal/track"
	"github.com/vollcheck/watchy/internal/util"
	"github.com/vollcheck/watchy/internal/watch"
)

// Reconciler replays a recursive walk of the root as track operations.
type Reconciler struct {
	engine     *track.Engine
	classifier *classify.Classifier

	// Ignores, when set, excludes matching paths from the walk. Must be
	// the same set the watcher filters with, or the two producers
	// disagree about which paths belong in the catalog.
	Ignores *watch.IgnoreSet

	// OnEntry, when set, is called after each entry is applied. Used by
	// the CLI for progress display.
	OnEntry func(path string)
}

// New creates a Reconciler submitting through engine.
func New(engine *track.Engine, classifier *classify.Classifier) *Reconciler {
	return &Reconciler{engine: engine, classifier: classifier}
}

// Result summarizes one reconciliation pass.
type Result struct {
	Touched int
	Skipped int
	Elapsed time.Duration
}

// Reconcile walks root and tracks every entry found. Entries that vanish
// or refuse a stat mid-walk are skipped, not fatal. Each track commits
// independently, so a pass cut short by ctx leaves a valid, partially
// refreshed catalog: cancellation returns the partial result with no
// error. A storage failure aborts the walk and is returned.
func (r *Reconciler) Reconcile(ctx context.Context, root string) (*Result, error) {
	root = filepath.Clean(root)
	result := &Result{}
	start := time.Now()

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// An unreadable root fails the whole pass; anything deeper
			// is an individual entry to skip.
			if path == root {
				return err
			}
			util.WarnLog("Skipping inaccessible entry %s: %v", path, err)
			result.Skipped++
			return nil
		}

		// The root is configuration, not a catalog entity
		if path == root {
			return nil
		}

		if r.Ignores.Match(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		var size int64
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				// Raced with a delete; the entry is gone, skip it
				util.DebugLog("Entry vanished mid-walk: %s", path)
				result.Skipped++
				return nil
			}
			size = info.Size()
		}

		op := track.Op{
			Kind:      track.OpTrack,
			Path:      path,
			Entity:    r.classifier.Classify(path, d.IsDir()),
			SizeBytes: size,
			Time:      time.Now(),
		}
		if err := r.engine.Submit(op); err != nil {
			return fmt.Errorf("failed to track %s: %w", path, err)
		}

		result.Touched++
		if r.OnEntry != nil {
			r.OnEntry(path)
		}
		return nil
	})

	result.Elapsed = time.Since(start)

	if walkErr != nil {
		// Interruption is not an error: partial progress is valid and a
		// later pass resumes safely.
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return result, nil
		}
		return result, fmt.Errorf("walk of %s failed: %w", root, walkErr)
	}

	return result, nil
}
