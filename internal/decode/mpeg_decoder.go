package decode

import (
	"io"
	"log/slog"

	"github.com/gen2brain/malgo"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// MpegDecoder handles MPEG audio payloads (ID3-tagged or bare frame streams)
type MpegDecoder struct{}

// NewMpegDecoder creates a new MPEG decoder instance
func NewMpegDecoder() *MpegDecoder {
	return &MpegDecoder{}
}

// Encoding returns the sniffed encoding this decoder handles
func (d *MpegDecoder) Encoding() sniff.Encoding {
	return sniff.EncodingMpeg
}

// FormatName returns the human-readable format name
func (d *MpegDecoder) FormatName() string {
	return "MPEG"
}

// Decode reads MPEG audio data from reader and returns decoded PCM data
func (d *MpegDecoder) Decode(reader io.Reader) (*AudioData, error) {
	slog.Debug("starting MPEG decode")

	decoder, err := mp3.NewDecoder(reader)
	if err != nil {
		slog.Error("failed to create MPEG decoder", "error", err)
		return nil, ErrInvalidData
	}

	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		slog.Error("invalid MPEG sample rate", "sample_rate", sampleRate)
		return nil, ErrInvalidData
	}

	var samples []byte
	buf := make([]byte, 8192)
	for {
		n, err := decoder.Read(buf)
		if n > 0 {
			samples = append(samples, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			slog.Error("failed to read MPEG PCM data", "error", err)
			return nil, ErrReadFailure
		}
		if n == 0 {
			break
		}
	}

	if len(samples) == 0 {
		slog.Error("no audio data in MPEG payload")
		return nil, ErrInvalidData
	}

	// go-mp3 always outputs 16-bit signed stereo
	audioData := &AudioData{
		Samples:    samples,
		Channels:   2,
		SampleRate: uint32(sampleRate),
		Format:     malgo.FormatS16,
	}

	slog.Info("MPEG decode complete",
		"bytes", len(samples),
		"sample_rate", audioData.SampleRate,
		"duration_ms", audioData.Duration().Milliseconds())

	return audioData, nil
}
