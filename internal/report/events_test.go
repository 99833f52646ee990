package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open event log: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	return events
}

func TestEventLoggerWritesJSONL(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	if logger.RunID() == "" {
		t.Error("expected a run ID")
	}

	if err := logger.LogTrack("/footage/a.mp4", "video", 1024); err != nil {
		t.Fatal(err)
	}
	if err := logger.LogRelocate("/footage/a.mp4", "/footage/b.mp4", "video"); err != nil {
		t.Fatal(err)
	}
	if err := logger.LogUntrack("/footage/b.mp4"); err != nil {
		t.Fatal(err)
	}
	if err := logger.LogScan("/footage", 42, 1500*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	events := readEvents(t, logger.Path())
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	track := events[0]
	if track.Event != EventTrack || track.Path != "/footage/a.mp4" || track.SizeBytes != 1024 {
		t.Errorf("unexpected track event: %+v", track)
	}
	if track.RunID != logger.RunID() {
		t.Errorf("expected run ID %s on record, got %s", logger.RunID(), track.RunID)
	}
	if track.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}

	relocate := events[1]
	if relocate.Event != EventRelocate || relocate.OldPath != "/footage/a.mp4" || relocate.Path != "/footage/b.mp4" {
		t.Errorf("unexpected relocate event: %+v", relocate)
	}

	scan := events[3]
	if scan.Event != EventScan || scan.Count != 42 || scan.Duration != 1500 {
		t.Errorf("unexpected scan event: %+v", scan)
	}
}

func TestEventLoggerLevelFiltering(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelInfo)
	if err != nil {
		t.Fatal(err)
	}

	// Track events are debug level and fall below the floor
	if err := logger.LogTrack("/footage/a.mp4", "video", 0); err != nil {
		t.Fatal(err)
	}
	if err := logger.LogUntrack("/footage/a.mp4"); err != nil {
		t.Fatal(err)
	}
	if err := logger.LogError(EventTrack, "/footage/b.mp4", errors.New("disk full")); err != nil {
		t.Fatal(err)
	}
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != 2 {
		t.Fatalf("expected debug record filtered out, got %d events", len(events))
	}
	if events[0].Event != EventUntrack {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Event != EventError || events[1].Error != "disk full" || events[1].Extra["operation"] != "track" {
		t.Errorf("unexpected error event: %+v", events[1])
	}
}

func TestNullLogger(t *testing.T) {
	logger := NullLogger()

	if err := logger.LogTrack("/footage/a.mp4", "video", 0); err != nil {
		t.Errorf("null logger must swallow writes: %v", err)
	}
	if logger.Path() != "" || logger.RunID() != "" {
		t.Error("null logger must report empty path and run ID")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("null logger close failed: %v", err)
	}

	// A nil receiver behaves the same
	var nilLogger *EventLogger
	if err := nilLogger.LogUntrack("/footage/a.mp4"); err != nil {
		t.Errorf("nil logger must swallow writes: %v", err)
	}
}
