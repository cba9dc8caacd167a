package preview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/KabirAcharya/riqpreview/internal/catalog"
	"github.com/KabirAcharya/riqpreview/internal/decode"
)

// Loader loads a song's audio on demand. The player itself never decodes;
// hosts that want previews of not-yet-preloaded songs wire a loader built
// on the extractor and decode bridge.
type Loader func(ctx context.Context, song *catalog.Song) (*decode.AudioData, error)

// Player auditions one song at a time. A new Play always tears down the
// prior session first, and a session whose load completes after the user
// has moved on is discarded silently: for any sequence of Play calls only
// the last one's "started" transition can ever be observed.
type Player struct {
	transport Transport
	loader    Loader

	// OnStarted fires when a preview actually begins playing
	OnStarted func(*catalog.Song)
	// OnStopped fires when an active session is torn down or finishes
	OnStopped func(*catalog.Song)

	mu         sync.Mutex
	current    *catalog.Song
	playing    bool
	generation uint64
}

// NewPlayer creates a preview player over the given transport
func NewPlayer(transport Transport) *Player {
	slog.Debug("creating preview player")
	return &Player{transport: transport}
}

// SetLoader wires the optional on-demand load path
func (p *Player) SetLoader(loader Loader) {
	p.loader = loader
}

// Play starts previewing song from offset. A non-positive offset means the
// track midpoint, so previews sample a representative section instead of a
// possibly silent intro. Without a decoded buffer and without a loader the
// call degrades to a no-op.
func (p *Player) Play(song *catalog.Song, offset time.Duration) {
	p.mu.Lock()
	p.stopSessionLocked()

	if song == nil {
		p.mu.Unlock()
		return
	}

	p.generation++
	gen := p.generation
	p.current = song

	if data := song.Audio(); data != nil {
		p.commitLocked(gen, song, data, offset)
		return
	}

	if p.loader == nil {
		slog.Debug("preview ignored, song not loaded and no on-demand loader",
			"song", song.Title)
		p.current = nil
		p.mu.Unlock()
		return
	}

	slog.Debug("preview deferred to on-demand load", "song", song.Title)
	p.mu.Unlock()

	go func() {
		data, err := p.loader(context.Background(), song)

		p.mu.Lock()
		if p.generation != gen || p.current != song {
			// The user moved on while we were loading; this session is
			// stale and must never become observable.
			p.mu.Unlock()
			slog.Debug("stale preview load discarded", "song", song.Title)
			return
		}

		if err != nil || data == nil {
			slog.Warn("on-demand preview load failed", "song", song.Title, "error", err)
			p.current = nil
			p.mu.Unlock()
			return
		}

		song.SetAudio(data)
		p.commitLocked(gen, song, data, offset)
	}()
}

// commitLocked starts the transport for a session whose target is still
// current. It releases the mutex and fires OnStarted on success.
// Precondition: p.mu held, p.generation == gen, p.current == song.
func (p *Player) commitLocked(gen uint64, song *catalog.Song, data *decode.AudioData, offset time.Duration) {
	if offset <= 0 {
		offset = data.Duration() / 2
	}

	err := p.transport.Start(data, offset, func() { p.sessionDone(gen) })
	if err != nil {
		slog.Warn("preview transport failed to start", "song", song.Title, "error", err)
		p.current = nil
		p.mu.Unlock()
		return
	}

	p.playing = true
	started := p.OnStarted
	p.mu.Unlock()

	slog.Info("preview started", "song", song.Title, "offset", offset)
	if started != nil {
		started(song)
	}
}

// sessionDone handles the transport's natural end-of-buffer signal
func (p *Player) sessionDone(gen uint64) {
	p.mu.Lock()
	if p.generation != gen || !p.playing {
		p.mu.Unlock()
		return
	}

	song := p.current
	p.playing = false
	p.current = nil
	stopped := p.OnStopped
	p.mu.Unlock()

	slog.Debug("preview finished", "song", songTitle(song))
	if stopped != nil && song != nil {
		stopped(song)
	}
}

// Stop tears down the active session, if any. Always safe to call; a
// transport error is treated as already-stopped. Fires a single "stopped"
// event only when a session was actually torn down.
func (p *Player) Stop() {
	p.mu.Lock()
	song := p.current
	hadSession := song != nil
	p.stopSessionLocked()
	stopped := p.OnStopped
	p.mu.Unlock()

	if hadSession {
		slog.Info("preview stopped", "song", songTitle(song))
		if stopped != nil {
			stopped(song)
		}
	}
}

// stopSessionLocked halts the transport and invalidates pending loads.
// Precondition: p.mu held.
func (p *Player) stopSessionLocked() {
	p.generation++

	if err := p.transport.Stop(); err != nil {
		// Preview playback is best-effort UI sugar; an invalid transport
		// handle means there is nothing left to stop.
		slog.Debug("preview transport stop error ignored", "error", err)
	}

	p.current = nil
	p.playing = false
}

// Seek repositions the active preview to a normalized position in [0, 1].
// No-op without an active session.
func (p *Player) Seek(pos float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing || p.current == nil {
		return
	}
	data := p.current.Audio()
	if data == nil {
		return
	}

	if pos < 0 {
		pos = 0
	} else if pos > 1 {
		pos = 1
	}

	offset := time.Duration(pos * float64(data.Duration()))
	if err := p.transport.Seek(offset); err != nil {
		slog.Debug("preview seek ignored", "error", err)
	}
}

// Progress returns the playback position normalized to [0, 1], or 0 without
// an active session
func (p *Player) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing || p.current == nil {
		return 0
	}
	data := p.current.Audio()
	if data == nil || data.Duration() == 0 {
		return 0
	}

	progress := float64(p.transport.Position()) / float64(data.Duration())
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	return progress
}

// Playing reports whether a preview is currently audible
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Current returns the song of the active session, or nil
func (p *Player) Current() *catalog.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Close stops any session and releases the transport
func (p *Player) Close() error {
	p.Stop()
	return p.transport.Close()
}

func songTitle(song *catalog.Song) string {
	if song == nil {
		return ""
	}
	return song.Title
}
