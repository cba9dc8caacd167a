package preview

import (
	"log/slog"
	"sync"
	"time"

	"github.com/KabirAcharya/riqpreview/internal/decode"
)

// NullTransport simulates playback against the wall clock without touching
// any audio device. It backs tests, headless hosts, and builds without a
// usable sound stack.
type NullTransport struct {
	mu       sync.Mutex
	closed   bool
	playing  bool
	duration time.Duration
	offset   time.Duration
	started  time.Time
	timer    *time.Timer
	onDone   func()
}

// NewNullTransport creates a silent transport
func NewNullTransport() *NullTransport {
	slog.Debug("creating null preview transport")
	return &NullTransport{}
}

// Start begins simulated playback of data at offset
func (n *NullTransport) Start(data *decode.AudioData, offset time.Duration, onDone func()) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrTransportClosed
	}

	n.stopLocked()

	remaining := data.Duration() - offset
	if remaining < 0 {
		remaining = 0
	}

	n.playing = true
	n.duration = data.Duration()
	n.offset = offset
	n.started = time.Now()
	n.onDone = onDone
	n.scheduleDoneLocked(remaining)

	slog.Debug("null transport playback started",
		"offset", offset,
		"duration", n.duration)
	return nil
}

// Stop halts simulated playback
func (n *NullTransport) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopLocked()
	return nil
}

func (n *NullTransport) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.playing = false
	n.onDone = nil
}

func (n *NullTransport) scheduleDoneLocked(remaining time.Duration) {
	if n.timer != nil {
		n.timer.Stop()
	}
	done := n.onDone
	n.timer = time.AfterFunc(remaining, func() {
		n.mu.Lock()
		n.playing = false
		n.mu.Unlock()
		if done != nil {
			done()
		}
	})
}

// Seek repositions the simulated cursor
func (n *NullTransport) Seek(offset time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.playing {
		return ErrNoPlayback
	}

	n.offset = offset
	n.started = time.Now()

	remaining := n.duration - offset
	if remaining < 0 {
		remaining = 0
	}
	n.scheduleDoneLocked(remaining)
	return nil
}

// Position returns the simulated playback offset
func (n *NullTransport) Position() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.playing {
		return 0
	}

	pos := n.offset + time.Since(n.started)
	if pos > n.duration {
		pos = n.duration
	}
	return pos
}

// Close releases the transport
func (n *NullTransport) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopLocked()
	n.closed = true
	return nil
}
