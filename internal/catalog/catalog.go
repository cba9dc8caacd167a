// Package catalog models the song library: one Song per discovered archive.
// The catalog owns list membership; the preload and preview layers only ever
// touch a Song's decoded buffer.
package catalog

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/KabirAcharya/riqpreview/internal/decode"
)

// Song represents one discoverable song archive
type Song struct {
	// ArchivePath is the song's stable identity
	ArchivePath string
	// Title shown in menus; derived from the archive filename at scan time
	Title string
	// Alternate marks the container sub-format whose audio entry is the
	// fixed name song.bin
	Alternate bool

	mu    sync.RWMutex
	audio *decode.AudioData
}

// NewSong creates a song entry for an archive
func NewSong(archivePath, title string, alternate bool) *Song {
	return &Song{
		ArchivePath: archivePath,
		Title:       title,
		Alternate:   alternate,
	}
}

// Audio returns the decoded buffer, or nil when the song is not loaded.
// The returned buffer is never mutated, only replaced wholesale.
func (s *Song) Audio() *decode.AudioData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audio
}

// SetAudio attaches a decoded buffer to the song
func (s *Song) SetAudio(data *decode.AudioData) {
	s.mu.Lock()
	s.audio = data
	s.mu.Unlock()
}

// ClearAudio detaches the decoded buffer
func (s *Song) ClearAudio() {
	s.SetAudio(nil)
}

// Ready reports whether the song has a decoded buffer attached
func (s *Song) Ready() bool {
	return s.Audio() != nil
}

// Scan discovers song archives in dir and returns their entries ordered by
// filename. Files ending in .riq are standard archives; .zip files are the
// alternate packaging.
func Scan(fs afero.Fs, dir string) ([]*Song, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		slog.Error("failed to read songs directory", "dir", dir, "error", err)
		return nil, err
	}

	var songs []*Song
	for _, info := range infos {
		if info.IsDir() {
			continue
		}

		name := info.Name()
		ext := strings.ToLower(filepath.Ext(name))

		var alternate bool
		switch ext {
		case ".riq":
			alternate = false
		case ".zip":
			alternate = true
		default:
			continue
		}

		title := strings.TrimSuffix(name, filepath.Ext(name))
		songs = append(songs, NewSong(filepath.Join(dir, name), title, alternate))
	}

	sort.Slice(songs, func(i, j int) bool {
		return songs[i].ArchivePath < songs[j].ArchivePath
	})

	slog.Info("song catalog scanned", "dir", dir, "songs", len(songs))
	return songs, nil
}
