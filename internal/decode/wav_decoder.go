package decode

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/youpy/go-wav"

	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// WavDecoder handles RIFF/WAVE payloads
type WavDecoder struct{}

// NewWavDecoder creates a new WAV decoder instance
func NewWavDecoder() *WavDecoder {
	return &WavDecoder{}
}

// Encoding returns the sniffed encoding this decoder handles
func (d *WavDecoder) Encoding() sniff.Encoding {
	return sniff.EncodingWav
}

// FormatName returns the human-readable format name
func (d *WavDecoder) FormatName() string {
	return "WAV"
}

// Decode reads WAV audio data from reader and returns decoded PCM data
func (d *WavDecoder) Decode(reader io.Reader) (*AudioData, error) {
	slog.Debug("starting WAV decode")

	// youpy/go-wav needs a ReadSeeker, so buffer everything first
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read WAV data", "error", err)
		return nil, ErrReadFailure
	}
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	wavReader := wav.NewReader(bytes.NewReader(data))
	format, err := wavReader.Format()
	if err != nil {
		slog.Error("failed to read WAV header", "error", err)
		return nil, ErrInvalidData
	}
	if format.NumChannels == 0 || format.SampleRate == 0 {
		slog.Error("invalid WAV format parameters",
			"channels", format.NumChannels,
			"sample_rate", format.SampleRate)
		return nil, ErrInvalidData
	}

	var malgoFormat malgo.FormatType
	switch format.BitsPerSample {
	case 8:
		malgoFormat = malgo.FormatU8
	case 16:
		malgoFormat = malgo.FormatS16
	case 24:
		malgoFormat = malgo.FormatS24
	case 32:
		malgoFormat = malgo.FormatS32
	default:
		slog.Error("unsupported WAV bit depth", "bits", format.BitsPerSample)
		return nil, ErrUnsupportedFormat
	}

	slog.Debug("WAV header parsed",
		"sample_rate", format.SampleRate,
		"channels", format.NumChannels,
		"bits_per_sample", format.BitsPerSample)

	bytesPerSample := int(format.BitsPerSample) / 8
	var samples []byte

	for {
		chunk, err := wavReader.ReadSamples()
		if err != nil {
			if err == io.EOF {
				break
			}
			slog.Error("failed to read WAV samples", "error", err)
			return nil, ErrReadFailure
		}
		if len(chunk) == 0 {
			break
		}

		for _, sample := range chunk {
			for ch := 0; ch < int(format.NumChannels); ch++ {
				var val int
				if ch < len(sample.Values) {
					val = sample.Values[ch]
				}
				for b := 0; b < bytesPerSample; b++ {
					samples = append(samples, byte(val>>(8*b)))
				}
			}
		}
	}

	if len(samples) == 0 {
		slog.Error("no audio data in WAV payload")
		return nil, ErrInvalidData
	}

	audioData := &AudioData{
		Samples:    samples,
		Channels:   uint32(format.NumChannels),
		SampleRate: format.SampleRate,
		Format:     malgoFormat,
	}

	slog.Info("WAV decode complete",
		"bytes", len(samples),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"duration_ms", audioData.Duration().Milliseconds())

	return audioData, nil
}
