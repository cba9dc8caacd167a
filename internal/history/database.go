// Package history keeps a best-effort record of preview plays and preload
// batches in a local sqlite database. A broken database disables recording
// with a warning; it never disturbs playback or preloading.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // database driver
)

// NewDatabase opens (and if needed creates) the history database at dbPath
// and applies the schema. Use ":memory:" for tests.
func NewDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}

	return db, nil
}

func ensureSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS preview_plays (
    id           INTEGER PRIMARY KEY,
    timestamp    INTEGER NOT NULL,
    archive_path TEXT    NOT NULL,
    title        TEXT    NOT NULL,
    offset_ms    INTEGER NOT NULL,
    duration_ms  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS preload_batches (
    id         INTEGER PRIMARY KEY,
    started_at INTEGER NOT NULL,
    total      INTEGER NOT NULL,
    loaded     INTEGER NOT NULL,
    failed     INTEGER NOT NULL,
    from_disk  INTEGER NOT NULL,
    elapsed_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plays_timestamp ON preview_plays(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_plays_title ON preview_plays(title);
CREATE INDEX IF NOT EXISTS idx_batches_started ON preload_batches(started_at DESC);
`

	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// DefaultDatabasePath returns the XDG-compliant location of the history
// database
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, "riqpreview", "history.db")
}
