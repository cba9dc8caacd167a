//go:build cgo

package preview

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/KabirAcharya/riqpreview/internal/decode"
)

// MalgoTransport plays decoded PCM through a malgo playback device. The
// device callback reads from the buffer at an atomic cursor, which also
// backs Seek and Position.
type MalgoTransport struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	closed bool

	data      *decode.AudioData
	frameSize int
	cursor    atomic.Int64
	doneOnce  *sync.Once
}

// NewMalgoTransport creates a transport; the underlying audio context is
// initialized lazily on first Start
func NewMalgoTransport() *MalgoTransport {
	slog.Debug("creating malgo preview transport")
	return &MalgoTransport{}
}

func (m *MalgoTransport) ensureContextLocked() error {
	if m.ctx != nil {
		return nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("malgo internal", "message", message)
	})
	if err != nil {
		slog.Error("failed to initialize audio context", "error", err)
		return fmt.Errorf("init audio context: %w", err)
	}

	m.ctx = ctx
	slog.Info("audio context initialized")
	return nil
}

// Start begins playback of data at offset
func (m *MalgoTransport) Start(data *decode.AudioData, offset time.Duration, onDone func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrTransportClosed
	}

	m.stopLocked()

	if err := m.ensureContextLocked(); err != nil {
		return err
	}

	m.data = data
	m.frameSize = data.FrameSize()
	m.cursor.Store(m.byteOffset(offset))

	done := &sync.Once{}
	m.doneOnce = done

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = data.Format
	deviceConfig.Playback.Channels = data.Channels
	deviceConfig.SampleRate = data.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		cur := m.cursor.Load()
		n := 0
		if cur < int64(len(data.Samples)) {
			n = copy(pOutput, data.Samples[cur:])
			m.cursor.Store(cur + int64(n))
		}
		for i := n; i < len(pOutput); i++ {
			pOutput[i] = 0
		}

		if n == 0 && onDone != nil {
			done.Do(func() { go onDone() })
		}
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		slog.Error("failed to initialize playback device", "error", err)
		return fmt.Errorf("init playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		slog.Error("failed to start playback device", "error", err)
		return fmt.Errorf("start playback device: %w", err)
	}

	m.device = device

	slog.Debug("malgo playback started",
		"offset", offset,
		"duration", data.Duration(),
		"sample_rate", data.SampleRate,
		"channels", data.Channels)
	return nil
}

// Stop halts playback and releases the device
func (m *MalgoTransport) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	return nil
}

func (m *MalgoTransport) stopLocked() {
	if m.device == nil {
		return
	}

	// Suppress the natural-end callback for a torn-down session
	if m.doneOnce != nil {
		m.doneOnce.Do(func() {})
		m.doneOnce = nil
	}

	m.device.Uninit()
	m.device = nil
	m.data = nil
	slog.Debug("malgo playback stopped")
}

// Seek repositions the playback cursor
func (m *MalgoTransport) Seek(offset time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil || m.data == nil {
		return ErrNoPlayback
	}

	m.cursor.Store(m.byteOffset(offset))
	return nil
}

// Position returns the current playback offset
func (m *MalgoTransport) Position() time.Duration {
	m.mu.Lock()
	data := m.data
	frameSize := m.frameSize
	m.mu.Unlock()

	if data == nil || frameSize == 0 || data.SampleRate == 0 {
		return 0
	}

	frames := m.cursor.Load() / int64(frameSize)
	return time.Duration(frames) * time.Second / time.Duration(data.SampleRate)
}

// Close stops playback and releases the audio context
func (m *MalgoTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.stopLocked()
	m.closed = true

	if m.ctx != nil {
		if err := m.ctx.Uninit(); err != nil {
			slog.Error("failed to uninitialize audio context", "error", err)
			return err
		}
		m.ctx.Free()
		m.ctx = nil
	}

	slog.Debug("malgo preview transport closed")
	return nil
}

// byteOffset converts a time offset to a frame-aligned byte offset, clamped
// to the buffer
func (m *MalgoTransport) byteOffset(offset time.Duration) int64 {
	if offset < 0 || m.data == nil || m.frameSize == 0 {
		return 0
	}

	frames := int64(offset.Seconds() * float64(m.data.SampleRate))
	pos := frames * int64(m.frameSize)
	if max := int64(len(m.data.Samples)); pos > max {
		pos = max
	}
	return pos
}
