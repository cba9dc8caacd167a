package decode

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"

	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// AiffDecoder handles IFF FORM/AIFF payloads
type AiffDecoder struct{}

// NewAiffDecoder creates a new AIFF decoder instance
func NewAiffDecoder() *AiffDecoder {
	return &AiffDecoder{}
}

// Encoding returns the sniffed encoding this decoder handles
func (d *AiffDecoder) Encoding() sniff.Encoding {
	return sniff.EncodingAiff
}

// FormatName returns the human-readable format name
func (d *AiffDecoder) FormatName() string {
	return "AIFF"
}

// Decode reads AIFF audio data from reader and returns decoded PCM data
func (d *AiffDecoder) Decode(reader io.Reader) (*AudioData, error) {
	slog.Debug("starting AIFF decode")

	// go-audio/aiff needs a ReadSeeker, so buffer everything first
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read AIFF data", "error", err)
		return nil, ErrReadFailure
	}
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	decoder := aiff.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		slog.Error("invalid AIFF file structure")
		return nil, ErrInvalidData
	}

	sampleRate := uint32(decoder.SampleRate)
	channels := uint32(decoder.NumChans)
	bitDepth := decoder.SampleBitDepth()
	if channels == 0 || sampleRate == 0 {
		slog.Error("invalid AIFF format parameters",
			"channels", channels, "sample_rate", sampleRate)
		return nil, ErrInvalidData
	}

	var malgoFormat malgo.FormatType
	switch bitDepth {
	case 16:
		malgoFormat = malgo.FormatS16
	case 24:
		malgoFormat = malgo.FormatS24
	case 32:
		malgoFormat = malgo.FormatS32
	default:
		slog.Error("unsupported AIFF bit depth", "bits", bitDepth)
		return nil, ErrUnsupportedFormat
	}

	pcmBuffer, err := decoder.FullPCMBuffer()
	if err != nil {
		slog.Error("failed to read AIFF samples", "error", err)
		return nil, ErrReadFailure
	}
	if pcmBuffer == nil || len(pcmBuffer.Data) == 0 {
		slog.Error("no audio data in AIFF payload")
		return nil, ErrInvalidData
	}

	samples := intBufferToBytes(pcmBuffer, int(bitDepth))

	audioData := &AudioData{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
		Format:     malgoFormat,
	}

	slog.Info("AIFF decode complete",
		"bytes", len(samples),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"duration_ms", audioData.Duration().Milliseconds())

	return audioData, nil
}

// intBufferToBytes converts an interleaved audio.IntBuffer to little-endian
// raw PCM bytes at the given bit depth
func intBufferToBytes(buf *audio.IntBuffer, bitDepth int) []byte {
	bytesPerSample := bitDepth / 8
	out := make([]byte, 0, len(buf.Data)*bytesPerSample)

	for _, val := range buf.Data {
		for b := 0; b < bytesPerSample; b++ {
			out = append(out, byte(val>>(8*b)))
		}
	}
	return out
}
