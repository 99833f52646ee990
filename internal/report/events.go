// Package report writes catalog activity to a JSONL event log, one file
// per run, for after-the-fact inspection of what the tracker did.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventTrack    EventType = "track"
	EventRelocate EventType = "relocate"
	EventUntrack  EventType = "untrack"
	EventScan     EventType = "scan"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event is a single record in the activity log
type Event struct {
	Timestamp time.Time         `json:"ts"`
	RunID     string            `json:"run_id,omitempty"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Path      string            `json:"path,omitempty"`
	OldPath   string            `json:"old_path,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	SizeBytes int64             `json:"size_bytes,omitempty"`
	Count     int               `json:"count,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level.
// Each logger represents one run, identified by a fresh run ID baked into
// the filename and every record.
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	runID := uuid.NewString()
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s-%s.jsonl", timestamp, runID[:8])
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// NullLogger returns a logger that discards everything. Safe to call
// methods on; used when the artifacts directory cannot be created.
func NullLogger() *EventLogger {
	return &EventLogger{}
}

// Path returns the log file path, empty for a null logger
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID returns the run identifier, empty for a null logger
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogTrack logs a track operation
func (l *EventLogger) LogTrack(path, kind string, sizeBytes int64) error {
	return l.Log(&Event{
		Level:     LevelDebug,
		Event:     EventTrack,
		Path:      path,
		Kind:      kind,
		SizeBytes: sizeBytes,
	})
}

// LogRelocate logs a relocation
func (l *EventLogger) LogRelocate(oldPath, newPath, kind string) error {
	return l.Log(&Event{
		Level:   LevelInfo,
		Event:   EventRelocate,
		Path:    newPath,
		OldPath: oldPath,
		Kind:    kind,
	})
}

// LogUntrack logs an untrack operation
func (l *EventLogger) LogUntrack(path string) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventUntrack,
		Path:  path,
	})
}

// LogScan logs a completed reconciliation pass
func (l *EventLogger) LogScan(root string, touched int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventScan,
		Path:     root,
		Count:    touched,
		Duration: duration.Milliseconds(),
	})
}

// LogError logs a failure applying an operation
func (l *EventLogger) LogError(event EventType, path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: EventError,
		Path:  path,
		Error: err.Error(),
		Extra: map[string]string{
			"operation": string(event),
		},
	})
}

// Close closes the log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.file.Close()
	l.file = nil
	return err
}
