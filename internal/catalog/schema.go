package catalog

// Schema v1 - Initial database schema
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Every path ever observed under the watched root. Rows are never deleted;
-- presence flips when an entity disappears from disk.
CREATE TABLE IF NOT EXISTS entities (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT UNIQUE NOT NULL,
  filename TEXT NOT NULL,
  parent_dir TEXT NOT NULL,
  kind TEXT NOT NULL,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  present INTEGER NOT NULL DEFAULT 1,
  processed INTEGER NOT NULL DEFAULT 0,
  processed_at DATETIME,
  first_seen_at DATETIME NOT NULL,
  last_seen_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);
CREATE INDEX IF NOT EXISTS idx_entities_present ON entities(present);
CREATE INDEX IF NOT EXISTS idx_entities_parent_dir ON entities(parent_dir);
CREATE INDEX IF NOT EXISTS idx_entities_processed_kind ON entities(processed, kind);
`
