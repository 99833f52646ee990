package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vollcheck/watchy/internal/classify"
)

const entityColumns = `id, path, filename, parent_dir, kind, size_bytes, present, processed,
       processed_at, first_seen_at, last_seen_at`

// Unprocessed returns the processing queue: present files not yet marked
// processed, oldest first. Directories never enter the queue. An empty
// kind matches any file kind.
func (s *Store) Unprocessed(kind classify.Kind, limit int) ([]*Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE present = 1 AND processed = 0 AND kind != 'directory'`
	args := []any{}

	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}

	query += " ORDER BY first_seen_at ASC LIMIT ?"
	args = append(args, limit)

	return s.queryEntities(query, args...)
}

// Search finds files matching the given criteria. Filename and directory
// are substring matches; kind is exact. Directories are excluded.
func (s *Store) Search(filename, directory string, kind classify.Kind, limit int) ([]*Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE kind != 'directory'`
	args := []any{}

	if filename != "" {
		query += ` AND filename LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(filename)+"%")
	}
	if directory != "" {
		query += ` AND parent_dir LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(directory)+"%")
	}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}

	query += " ORDER BY last_seen_at DESC LIMIT ?"
	args = append(args, limit)

	return s.queryEntities(query, args...)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// MarkProcessed marks one file as processed. Returns false when the ID is unknown.
func (s *Store) MarkProcessed(id int64, now time.Time) (bool, error) {
	result, err := s.db.Exec(`
		UPDATE entities SET processed = 1, processed_at = ?
		WHERE id = ?
	`, now, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark entity %d processed: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkProcessedBatch marks multiple files processed and returns the
// number of rows updated.
func (s *Store) MarkProcessedBatch(ids []int64, now time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, now)
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := s.db.Exec(`
		UPDATE entities SET processed = 1, processed_at = ?
		WHERE id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark batch processed: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

func (s *Store) queryEntities(query string, args ...any) ([]*Entity, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		ent := &Entity{}
		var kind string
		var processedAt sql.NullTime
		err := rows.Scan(
			&ent.ID, &ent.Path, &ent.Filename, &ent.ParentDir, &kind, &ent.SizeBytes,
			&ent.Present, &ent.Processed, &processedAt, &ent.FirstSeenAt, &ent.LastSeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		ent.Kind = classify.Kind(kind)
		if processedAt.Valid {
			ent.ProcessedAt = &processedAt.Time
		}
		entities = append(entities, ent)
	}

	return entities, rows.Err()
}
