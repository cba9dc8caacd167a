//go:build cgo

package preview

import (
	"encoding/binary"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/gen2brain/malgo"

	"github.com/KabirAcharya/riqpreview/internal/decode"
)

// BeepTransport plays decoded PCM through the beep speaker. It exists as an
// alternative to the malgo device transport; selection happens in the host
// configuration.
type BeepTransport struct {
	mu          sync.Mutex
	closed      bool
	initialized bool
	sampleRate  beep.SampleRate
	streamer    *pcmStreamer
}

// NewBeepTransport creates a speaker-backed transport
func NewBeepTransport() *BeepTransport {
	slog.Debug("creating beep preview transport")
	return &BeepTransport{}
}

// Start begins playback of data at offset
func (b *BeepTransport) Start(data *decode.AudioData, offset time.Duration, onDone func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrTransportClosed
	}

	rate := beep.SampleRate(data.SampleRate)
	if !b.initialized || rate != b.sampleRate {
		// Init tears down any previous speaker instance
		if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
			slog.Error("failed to initialize speaker", "error", err)
			return err
		}
		b.initialized = true
		b.sampleRate = rate
	} else {
		speaker.Clear()
	}

	streamer := newPCMStreamer(data)
	streamer.seekTo(offset)
	b.streamer = streamer

	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		if onDone != nil {
			// Run outside the speaker goroutine so a follow-up Start
			// cannot deadlock on the speaker lock
			go onDone()
		}
	})))

	slog.Debug("beep playback started",
		"offset", offset,
		"duration", data.Duration(),
		"sample_rate", data.SampleRate)
	return nil
}

// Stop halts playback
func (b *BeepTransport) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		speaker.Clear()
	}
	b.streamer = nil
	return nil
}

// Seek repositions the playback cursor
func (b *BeepTransport) Seek(offset time.Duration) error {
	b.mu.Lock()
	streamer := b.streamer
	b.mu.Unlock()

	if streamer == nil {
		return ErrNoPlayback
	}

	speaker.Lock()
	streamer.seekTo(offset)
	speaker.Unlock()
	return nil
}

// Position returns the current playback offset
func (b *BeepTransport) Position() time.Duration {
	b.mu.Lock()
	streamer := b.streamer
	b.mu.Unlock()

	if streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := streamer.position()
	speaker.Unlock()
	return pos
}

// Close stops playback and releases the speaker
func (b *BeepTransport) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	if b.initialized {
		speaker.Clear()
		speaker.Close()
		b.initialized = false
	}
	b.streamer = nil
	b.closed = true
	return nil
}

// pcmStreamer adapts an AudioData PCM buffer to a beep.Streamer. Mono
// buffers are duplicated to both speaker channels; buffers with more than
// two channels play their first two.
type pcmStreamer struct {
	data  *decode.AudioData
	frame int
}

func newPCMStreamer(data *decode.AudioData) *pcmStreamer {
	return &pcmStreamer{data: data}
}

func (s *pcmStreamer) totalFrames() int {
	frameSize := s.data.FrameSize()
	if frameSize == 0 {
		return 0
	}
	return len(s.data.Samples) / frameSize
}

func (s *pcmStreamer) seekTo(offset time.Duration) {
	if offset < 0 {
		offset = 0
	}
	frame := int(offset.Seconds() * float64(s.data.SampleRate))
	if total := s.totalFrames(); frame > total {
		frame = total
	}
	s.frame = frame
}

func (s *pcmStreamer) position() time.Duration {
	if s.data.SampleRate == 0 {
		return 0
	}
	return time.Duration(s.frame) * time.Second / time.Duration(s.data.SampleRate)
}

// Stream fills samples from the PCM buffer, converting to float64
func (s *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	total := s.totalFrames()
	if s.frame >= total {
		return 0, false
	}

	n := 0
	for i := range samples {
		if s.frame >= total {
			break
		}

		left := s.sampleAt(s.frame, 0)
		right := left
		if s.data.Channels > 1 {
			right = s.sampleAt(s.frame, 1)
		}

		samples[i][0] = left
		samples[i][1] = right
		s.frame++
		n++
	}
	return n, n > 0
}

// Err implements beep.Streamer; PCM buffers cannot fail mid-stream
func (s *pcmStreamer) Err() error {
	return nil
}

// sampleAt decodes the sample of one channel of one frame to [-1, 1]
func (s *pcmStreamer) sampleAt(frame, channel int) float64 {
	bps := s.data.BytesPerSample()
	idx := frame*s.data.FrameSize() + channel*bps
	if idx+bps > len(s.data.Samples) {
		return 0
	}
	raw := s.data.Samples[idx : idx+bps]

	switch s.data.Format {
	case malgo.FormatU8:
		return (float64(raw[0]) - 128) / 128
	case malgo.FormatS16:
		return float64(int16(binary.LittleEndian.Uint16(raw))) / (1 << 15)
	case malgo.FormatS24:
		v := int32(raw[0]) | int32(raw[1])<<8 | int32(raw[2])<<16
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF)
		}
		return float64(v) / (1 << 23)
	case malgo.FormatS32:
		return float64(int32(binary.LittleEndian.Uint32(raw))) / (1 << 31)
	case malgo.FormatF32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
	default:
		return 0
	}
}
