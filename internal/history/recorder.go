package history

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/KabirAcharya/riqpreview/internal/preload"
)

// Recorder writes history rows. After the first write failure it disables
// itself so a broken database costs at most one warning per process.
type Recorder struct {
	db       *sql.DB
	mu       sync.Mutex
	disabled bool
}

// NewRecorder creates a recorder over an open history database
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordPlay stores one started preview
func (r *Recorder) RecordPlay(archivePath, title string, offset, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled {
		return
	}

	_, err := r.db.Exec(
		`INSERT INTO preview_plays (timestamp, archive_path, title, offset_ms, duration_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		time.Now().Unix(), archivePath, title,
		offset.Milliseconds(), duration.Milliseconds(),
	)
	if err != nil {
		slog.Warn("history recording disabled, play insert failed", "error", err)
		r.disabled = true
	}
}

// RecordBatch stores the outcome of one preload batch
func (r *Recorder) RecordBatch(stats preload.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled {
		return
	}

	_, err := r.db.Exec(
		`INSERT INTO preload_batches (started_at, total, loaded, failed, from_disk, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), stats.Total, stats.Loaded, stats.Failed,
		stats.FromDisk, stats.Elapsed.Milliseconds(),
	)
	if err != nil {
		slog.Warn("history recording disabled, batch insert failed", "error", err)
		r.disabled = true
	}
}
