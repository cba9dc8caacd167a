// Package riq reads song archives. An archive is a plain zip container
// holding one audio entry alongside level data. Two packagings exist: the
// standard one, whose audio entry name starts with "song", and the alternate
// one, whose audio entry is always named exactly "song.bin".
package riq

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/yeka/zip"

	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// audioEntryPrefix selects the audio entry in standard archives; the first
// entry in archive order whose name starts with it wins. Archives in the
// wild rely on this exact tie-break, so it is preserved as-is.
const audioEntryPrefix = "song"

// alternateEntryName is the fixed audio entry name in alternate archives,
// and the fallback for standard archives with no "song"-prefixed entry.
const alternateEntryName = "song.bin"

// ErrNotFound reports a missing archive file or a missing audio entry
var ErrNotFound = errors.New("song audio not found")

// ExtractAudio opens the archive at path read-only and returns the raw bytes
// of its audio entry plus the entry's name inside the archive. The archive is
// never locked exclusively; other readers may have it open concurrently.
func ExtractAudio(path string, alternate bool) ([]byte, string, error) {
	slog.Debug("extracting audio entry", "archive", path, "alternate", alternate)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("archive file missing", "archive", path)
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, "", fmt.Errorf("stat archive %s: %w", path, err)
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		slog.Error("failed to open archive", "archive", path, "error", err)
		return nil, "", fmt.Errorf("open archive %s: %w", path, err)
	}
	defer reader.Close()

	entry := selectAudioEntry(reader.File, alternate)
	if entry == nil {
		slog.Warn("no audio entry in archive", "archive", path, "entries", len(reader.File))
		return nil, "", fmt.Errorf("%w: no audio entry in %s", ErrNotFound, path)
	}

	rc, err := entry.Open()
	if err != nil {
		slog.Error("failed to open audio entry", "archive", path, "entry", entry.Name, "error", err)
		return nil, "", fmt.Errorf("open entry %s in %s: %w", entry.Name, path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		slog.Error("failed to read audio entry", "archive", path, "entry", entry.Name, "error", err)
		return nil, "", fmt.Errorf("read entry %s in %s: %w", entry.Name, path, err)
	}

	slog.Debug("audio entry extracted",
		"archive", path,
		"entry", entry.Name,
		"bytes", len(data),
		"mime", sniff.Describe(data))

	return data, entry.Name, nil
}

// selectAudioEntry applies the entry-selection rule: alternate archives use
// the fixed name; standard archives take the first "song"-prefixed entry in
// archive order, falling back to the fixed name before giving up.
func selectAudioEntry(files []*zip.File, alternate bool) *zip.File {
	if alternate {
		return findExact(files, alternateEntryName)
	}

	for _, f := range files {
		if strings.HasPrefix(strings.ToLower(f.Name), audioEntryPrefix) {
			return f
		}
	}

	return findExact(files, alternateEntryName)
}

func findExact(files []*zip.File, name string) *zip.File {
	for _, f := range files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Entry describes one archive member for the inspect command
type Entry struct {
	Name string
	Size uint64
}

// ListEntries returns all entries of the archive in archive order
func ListEntries(path string) ([]Entry, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer reader.Close()

	entries := make([]Entry, 0, len(reader.File))
	for _, f := range reader.File {
		entries = append(entries, Entry{Name: f.Name, Size: f.UncompressedSize64})
	}

	slog.Debug("listed archive entries", "archive", path, "count", len(entries))
	return entries, nil
}
