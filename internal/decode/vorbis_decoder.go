package decode

import (
	"io"
	"log/slog"
	"math"

	"github.com/gen2brain/malgo"
	"github.com/jfreymuth/oggvorbis"

	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// VorbisDecoder handles Ogg Vorbis payloads
type VorbisDecoder struct{}

// NewVorbisDecoder creates a new Ogg Vorbis decoder instance
func NewVorbisDecoder() *VorbisDecoder {
	return &VorbisDecoder{}
}

// Encoding returns the sniffed encoding this decoder handles
func (d *VorbisDecoder) Encoding() sniff.Encoding {
	return sniff.EncodingVorbis
}

// FormatName returns the human-readable format name
func (d *VorbisDecoder) FormatName() string {
	return "Ogg Vorbis"
}

// Decode reads Ogg Vorbis data from reader and returns decoded PCM data.
// oggvorbis yields float32 frames; they are converted to interleaved 16-bit
// signed PCM to match the rest of the decoder roster.
//
// oggvorbis can panic on truncated or corrupt pages, notably when a seekable
// reader sends it down the LastPosition path. Those panics are recovered here
// and reported as ErrInvalidData so one bad payload cannot take down the
// process.
func (d *VorbisDecoder) Decode(reader io.Reader) (data *AudioData, err error) {
	slog.Debug("starting Ogg Vorbis decode")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Ogg Vorbis decoder panicked on corrupt input", "panic", r)
			data = nil
			err = ErrInvalidData
		}
	}()

	dec, err := oggvorbis.NewReader(reader)
	if err != nil {
		slog.Error("failed to create Ogg Vorbis decoder", "error", err)
		return nil, ErrInvalidData
	}

	sampleRate := dec.SampleRate()
	channels := dec.Channels()
	if sampleRate <= 0 || channels <= 0 {
		slog.Error("invalid Ogg Vorbis stream parameters",
			"sample_rate", sampleRate, "channels", channels)
		return nil, ErrInvalidData
	}

	slog.Debug("Ogg Vorbis stream opened",
		"sample_rate", sampleRate,
		"channels", channels)

	var samples []byte
	frameBuf := make([]float32, 4096*channels)

	for {
		n, err := dec.Read(frameBuf)
		for _, f := range frameBuf[:n] {
			samples = append(samples, float32ToS16LE(f)...)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			slog.Error("failed to read Ogg Vorbis samples", "error", err)
			return nil, ErrReadFailure
		}
		if n == 0 {
			break
		}
	}

	if len(samples) == 0 {
		slog.Error("no audio data in Ogg Vorbis payload")
		return nil, ErrInvalidData
	}

	audioData := &AudioData{
		Samples:    samples,
		Channels:   uint32(channels),
		SampleRate: uint32(sampleRate),
		Format:     malgo.FormatS16,
	}

	slog.Info("Ogg Vorbis decode complete",
		"bytes", len(samples),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"duration_ms", audioData.Duration().Milliseconds())

	return audioData, nil
}

// float32ToS16LE clamps one float sample to [-1, 1] and encodes it as
// little-endian signed 16-bit
func float32ToS16LE(f float32) []byte {
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	v := int16(f * math.MaxInt16)
	return []byte{byte(v), byte(v >> 8)}
}
