// Package decode turns raw audio bytes of a sniffed encoding into playable
// in-memory PCM buffers.
package decode

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// Common decoder errors
var (
	ErrInvalidData       = errors.New("invalid audio data")
	ErrReadFailure       = errors.New("failed to read audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// AudioData represents decoded audio ready for playback
type AudioData struct {
	Samples    []byte           // Raw interleaved PCM data
	Channels   uint32           // Number of audio channels
	SampleRate uint32           // Sample rate in Hz
	Format     malgo.FormatType // Sample format (e.g., malgo.FormatS16)
}

// BytesPerSample returns the size of one sample of one channel
func (a *AudioData) BytesPerSample() int {
	switch a.Format {
	case malgo.FormatU8:
		return 1
	case malgo.FormatS16:
		return 2
	case malgo.FormatS24:
		return 3
	case malgo.FormatS32, malgo.FormatF32:
		return 4
	default:
		slog.Warn("unknown sample format, assuming 2 bytes per sample", "format", a.Format)
		return 2
	}
}

// FrameSize returns the size in bytes of one frame (one sample per channel)
func (a *AudioData) FrameSize() int {
	return a.BytesPerSample() * int(a.Channels)
}

// Duration returns the playback length of the buffer
func (a *AudioData) Duration() time.Duration {
	frameSize := a.FrameSize()
	if frameSize == 0 || a.SampleRate == 0 {
		return 0
	}
	frames := len(a.Samples) / frameSize
	return time.Duration(frames) * time.Second / time.Duration(a.SampleRate)
}

// Decoder decodes one audio encoding into PCM
type Decoder interface {
	// Decode reads audio data from reader and returns decoded PCM data
	Decode(reader io.Reader) (*AudioData, error)

	// Encoding returns the sniffed encoding this decoder handles
	Encoding() sniff.Encoding

	// FormatName returns the human-readable name of the format
	FormatName() string
}
