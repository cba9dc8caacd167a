// Package preview plays short auditions of decoded songs: one active
// session at a time, cancellation-safe under rapid selection changes.
package preview

import (
	"errors"
	"time"

	"github.com/KabirAcharya/riqpreview/internal/decode"
)

// Common transport errors
var (
	ErrTransportClosed = errors.New("transport is closed")
	ErrNoPlayback      = errors.New("no playback in progress")
)

// Transport is the platform playback capability the player drives. One
// transport plays at most one buffer at a time; Start implicitly replaces
// any prior playback.
type Transport interface {
	// Start begins playback of data at the given offset. onDone is invoked
	// once if playback runs to the natural end of the buffer; it is not
	// invoked after Stop.
	Start(data *decode.AudioData, offset time.Duration, onDone func()) error

	// Stop halts playback. Safe to call when nothing is playing.
	Stop() error

	// Seek repositions the playback cursor
	Seek(offset time.Duration) error

	// Position returns the current playback offset
	Position() time.Duration

	// Close releases the transport
	Close() error
}
