package track

import (
	"fmt"
	"sync"

	"github.com/vollcheck/watchy/internal/catalog"
	"github.com/vollcheck/watchy/internal/report"
)

// Engine applies canonical operations to the catalog. All writes funnel
// through one lock so the live event stream and a concurrent
// reconciliation pass never interleave on the same path. A single global
// lock is enough at footage volumes.
//
// The engine does not retry: a storage failure propagates to the caller
// so drift is visible to the operator.
type Engine struct {
	store  *catalog.Store
	logger *report.EventLogger

	mu sync.Mutex
}

// NewEngine creates an Engine writing to store. logger may be nil.
func NewEngine(store *catalog.Store, logger *report.EventLogger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Submit applies one operation, blocking until it is durably applied.
func (e *Engine) Submit(op Op) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch op.Kind {
	case OpTrack:
		if err := e.store.UpsertTrack(op.Path, op.Entity, op.SizeBytes, op.Time); err != nil {
			e.logger.LogError(report.EventTrack, op.Path, err)
			return err
		}
		e.logger.LogTrack(op.Path, string(op.Entity), op.SizeBytes)
		return nil

	case OpRelocate:
		if err := e.store.Relocate(op.OldPath, op.Path, op.Entity, op.SizeBytes, op.Time); err != nil {
			e.logger.LogError(report.EventRelocate, op.Path, err)
			return err
		}
		e.logger.LogRelocate(op.OldPath, op.Path, string(op.Entity))
		return nil

	case OpUntrack:
		if err := e.store.Untrack(op.Path, op.Time); err != nil {
			e.logger.LogError(report.EventUntrack, op.Path, err)
			return err
		}
		e.logger.LogUntrack(op.Path)
		return nil

	default:
		return fmt.Errorf("unknown operation kind %d", op.Kind)
	}
}
