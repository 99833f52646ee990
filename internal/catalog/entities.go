package catalog

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/vollcheck/watchy/internal/classify"
)

// Entity is one catalog row: a filesystem path observed under the root
type Entity struct {
	ID          int64
	Path        string
	Filename    string
	ParentDir   string
	Kind        classify.Kind
	SizeBytes   int64
	Present     bool
	Processed   bool
	ProcessedAt *time.Time
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// execer abstracts *sql.DB and *sql.Tx so write operations can run
// standalone or inside a relocation transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

const upsertTrackSQL = `
	INSERT INTO entities (path, filename, parent_dir, kind, size_bytes, present, first_seen_at, last_seen_at)
	VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		kind = excluded.kind,
		size_bytes = excluded.size_bytes,
		present = 1,
		last_seen_at = excluded.last_seen_at
`

// UpsertTrack records an observation of path. A new path gets
// first_seen_at = last_seen_at = now; an existing row only refreshes
// last_seen_at, presence, kind and size. Idempotent under duplication.
func (s *Store) UpsertTrack(path string, kind classify.Kind, sizeBytes int64, now time.Time) error {
	return upsertTrack(s.db, path, kind, sizeBytes, now)
}

func upsertTrack(e execer, path string, kind classify.Kind, sizeBytes int64, now time.Time) error {
	_, err := e.Exec(upsertTrackSQL,
		path, filepath.Base(path), filepath.Dir(path), string(kind), sizeBytes, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert entity %s: %w", path, err)
	}
	return nil
}

// Untrack flips presence off for path. A no-op when the path is unknown
// or already absent, so duplicate or late delete notifications are safe.
func (s *Store) Untrack(path string, now time.Time) error {
	return untrack(s.db, path, now)
}

func untrack(e execer, path string, now time.Time) error {
	_, err := e.Exec(`
		UPDATE entities SET present = 0, last_seen_at = ?
		WHERE path = ? AND present = 1
	`, now, path)
	if err != nil {
		return fmt.Errorf("failed to untrack entity %s: %w", path, err)
	}
	return nil
}

// Relocate moves oldPath to newPath in a single transaction: the old row
// goes absent and the new row is tracked, with no intermediate state
// visible to readers.
func (s *Store) Relocate(oldPath, newPath string, kind classify.Kind, sizeBytes int64, now time.Time) error {
	return s.Transaction(func(tx *sql.Tx) error {
		if err := untrack(tx, oldPath, now); err != nil {
			return err
		}
		return upsertTrack(tx, newPath, kind, sizeBytes, now)
	})
}

// GetByPath retrieves an entity by its canonical path. Returns nil when unknown.
func (s *Store) GetByPath(path string) (*Entity, error) {
	return s.getOne("path = ?", path)
}

// GetByID retrieves an entity by its row ID. Returns nil when unknown.
func (s *Store) GetByID(id int64) (*Entity, error) {
	return s.getOne("id = ?", id)
}

func (s *Store) getOne(where string, arg any) (*Entity, error) {
	ent := &Entity{}
	var kind string
	var processedAt sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, path, filename, parent_dir, kind, size_bytes, present, processed,
		       processed_at, first_seen_at, last_seen_at
		FROM entities WHERE `+where, arg).Scan(
		&ent.ID, &ent.Path, &ent.Filename, &ent.ParentDir, &kind, &ent.SizeBytes,
		&ent.Present, &ent.Processed, &processedAt, &ent.FirstSeenAt, &ent.LastSeenAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	ent.Kind = classify.Kind(kind)
	if processedAt.Valid {
		ent.ProcessedAt = &processedAt.Time
	}
	return ent, nil
}

// Stats are aggregate counts over the catalog. TotalTracked covers every
// row ever created; the remaining aggregates describe the live tree
// (present rows only).
type Stats struct {
	TotalTracked     int                   `json:"total_tracked"`
	PresentCount     int                   `json:"present_count"`
	ByKind           map[classify.Kind]int `json:"by_kind"`
	TotalFiles       int                   `json:"total_files"`
	TotalDirectories int                   `json:"total_directories"`
	ProcessedFiles   int                   `json:"processed_files"`
	UnprocessedFiles int                   `json:"unprocessed_files"`
	TotalSizeBytes   int64                 `json:"total_size_bytes"`
}

// Stats computes catalog aggregates in one pass plus a per-kind rollup.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{ByKind: make(map[classify.Kind]int)}

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(present), 0),
		       COALESCE(SUM(CASE WHEN present = 1 AND kind != 'directory' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN present = 1 AND kind = 'directory' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN present = 1 AND kind != 'directory' AND processed = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN present = 1 AND kind != 'directory' AND processed = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN present = 1 AND kind != 'directory' THEN size_bytes ELSE 0 END), 0)
		FROM entities
	`).Scan(&st.TotalTracked, &st.PresentCount, &st.TotalFiles, &st.TotalDirectories,
		&st.ProcessedFiles, &st.UnprocessedFiles, &st.TotalSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT kind, COUNT(*) FROM entities WHERE present = 1 GROUP BY kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute kind counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan kind count: %w", err)
		}
		st.ByKind[classify.Kind(kind)] = count
	}

	return st, rows.Err()
}
