// Package diskcache persists raw (undecoded) audio payloads extracted from
// song archives. The cache is one flat directory; the derived filename is
// the index, there is no manifest. Files are written once and never modified,
// so the file's modification time doubles as its creation time.
package diskcache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Suffix is appended to the archive's stem to form the cache filename
const Suffix = ".audio"

// DefaultMaxAge is the sweep age bound used when the host configures none
const DefaultMaxAge = 7 * 24 * time.Hour

// Cache is a flat directory of extracted audio payloads keyed by archive
// identity. It has no size bound other than age-based sweeping; very large
// libraries can grow it unbounded between sweeps.
type Cache struct {
	fs   afero.Fs
	root string
	now  func() time.Time // overridable for sweep boundary tests
}

// New creates a cache rooted at root. The directory itself is created
// lazily on first store.
func New(fs afero.Fs, root string) *Cache {
	slog.Debug("creating disk cache", "root", root)
	return &Cache{fs: fs, root: root, now: time.Now}
}

// Root returns the cache directory path
func (c *Cache) Root() string {
	return c.root
}

// Path returns the derived cache path for an archive: the archive's filename
// with its extension stripped and Suffix appended, inside the cache root.
func (c *Cache) Path(archivePath string) string {
	base := filepath.Base(archivePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.root, stem+Suffix)
}

// Lookup reports whether a cached payload exists for the archive and returns
// its path. Presence of the file is the sole existence check.
func (c *Cache) Lookup(archivePath string) (string, bool) {
	path := c.Path(archivePath)

	info, err := c.fs.Stat(path)
	if err != nil || info.IsDir() {
		slog.Debug("cache miss", "archive", archivePath, "path", path)
		return path, false
	}

	slog.Debug("cache hit", "archive", archivePath, "path", path, "bytes", info.Size())
	return path, true
}

// Read returns the cached payload bytes for an archive
func (c *Cache) Read(archivePath string) ([]byte, error) {
	path := c.Path(archivePath)
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read cache file %s: %w", path, err)
	}
	return data, nil
}

// Store writes the payload to the derived cache path and returns it. The
// write goes to a uniquely named temp file first and is renamed into place,
// so concurrent duplicate stores settle on one intact file (last writer
// wins, never an interleaving of both).
func (c *Cache) Store(archivePath string, data []byte) (string, error) {
	if err := c.fs.MkdirAll(c.root, 0o755); err != nil {
		return "", fmt.Errorf("create cache root %s: %w", c.root, err)
	}

	path := c.Path(archivePath)
	tmp := fmt.Sprintf("%s.tmp-%d", path, time.Now().UnixNano())

	if err := afero.WriteFile(c.fs, tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write cache temp file %s: %w", tmp, err)
	}

	if err := c.fs.Rename(tmp, path); err != nil {
		// A concurrent store for the same archive may have landed first;
		// its content is equally valid, keep it and discard ours.
		if _, statErr := c.fs.Stat(path); statErr == nil {
			slog.Debug("cache store lost rename race, keeping winner",
				"archive", archivePath, "path", path)
			if rmErr := c.fs.Remove(tmp); rmErr != nil {
				slog.Warn("failed to remove orphaned cache temp file", "path", tmp, "error", rmErr)
			}
			return path, nil
		}
		return "", fmt.Errorf("finalize cache file %s: %w", path, err)
	}

	slog.Debug("cache store complete", "archive", archivePath, "path", path, "bytes", len(data))
	return path, nil
}

// SweepExpired deletes every cache file strictly older than maxAge and
// returns the number deleted. A file aged exactly maxAge survives. Per-file
// failures are logged and skipped. Intended for shutdown/cleanup, not a timer.
func (c *Cache) SweepExpired(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	cutoff := c.now().Add(-maxAge)
	removed := 0

	for _, info := range c.listFiles() {
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(c.root, info.Name())
		if err := c.fs.Remove(path); err != nil {
			slog.Warn("failed to sweep cache file", "path", path, "error", err)
			continue
		}

		slog.Debug("swept expired cache file", "path", path, "age", time.Since(info.ModTime()))
		removed++
	}

	slog.Info("cache sweep finished", "removed", removed, "max_age", maxAge)
	return removed
}

// ClearAll deletes every file in the cache directory, best-effort, and
// returns the number deleted
func (c *Cache) ClearAll() int {
	removed := 0

	for _, info := range c.listFiles() {
		path := filepath.Join(c.root, info.Name())
		if err := c.fs.Remove(path); err != nil {
			slog.Warn("failed to clear cache file", "path", path, "error", err)
			continue
		}
		removed++
	}

	slog.Info("cache cleared", "removed", removed)
	return removed
}

func (c *Cache) listFiles() []os.FileInfo {
	infos, err := afero.ReadDir(c.fs, c.root)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read cache directory", "root", c.root, "error", err)
		}
		return nil
	}

	files := make([]os.FileInfo, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		files = append(files, info)
	}
	return files
}
