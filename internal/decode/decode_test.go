package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// makeWavFixture builds a minimal valid PCM WAV payload
func makeWavFixture(t *testing.T, channels, sampleRate, frames int) []byte {
	t.Helper()

	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	dataSize := frames * blockAlign

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for i := 0; i < frames*channels; i++ {
		binary.Write(&buf, binary.LittleEndian, int16(i%256-128))
	}

	return buf.Bytes()
}

func TestWavDecoderRoundTrip(t *testing.T) {
	fixture := makeWavFixture(t, 2, 44100, 100)

	if enc := sniff.Classify(fixture); enc != sniff.EncodingWav {
		t.Fatalf("fixture does not sniff as WAV: %v", enc)
	}

	decoder := NewWavDecoder()
	data, err := decoder.Decode(bytes.NewReader(fixture))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if data.Channels != 2 {
		t.Errorf("expected 2 channels, got %d", data.Channels)
	}
	if data.SampleRate != 44100 {
		t.Errorf("expected 44100 Hz, got %d", data.SampleRate)
	}
	if data.Format != malgo.FormatS16 {
		t.Errorf("expected FormatS16, got %v", data.Format)
	}
	if len(data.Samples) != 100*2*2 {
		t.Errorf("expected 400 sample bytes, got %d", len(data.Samples))
	}
}

func TestWavDecoderRejectsGarbage(t *testing.T) {
	decoder := NewWavDecoder()
	if _, err := decoder.Decode(bytes.NewReader([]byte("definitely not a wav"))); err == nil {
		t.Fatal("expected error for non-WAV input")
	}
}

func TestMpegDecoderRejectsGarbage(t *testing.T) {
	decoder := NewMpegDecoder()
	if _, err := decoder.Decode(bytes.NewReader([]byte{0xFF, 0xFB, 0x00})); err == nil {
		t.Fatal("expected error for truncated MPEG input")
	}
}

func TestVorbisDecoderRejectsGarbage(t *testing.T) {
	decoder := NewVorbisDecoder()

	// bytes.Reader is seekable, so oggvorbis scans for the last page and
	// panics on the truncated one; the decoder must turn that into an error.
	payload := append([]byte("OggS"), bytes.Repeat([]byte{0}, 32)...)
	_, err := decoder.Decode(bytes.NewReader(payload))
	if !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData for corrupt Ogg input, got %v", err)
	}
}

func TestAudioDataDuration(t *testing.T) {
	data := &AudioData{
		Samples:    make([]byte, 44100*2*2), // one second of 16-bit stereo
		Channels:   2,
		SampleRate: 44100,
		Format:     malgo.FormatS16,
	}

	if got := data.Duration(); got != time.Second {
		t.Errorf("expected 1s duration, got %v", got)
	}
	if got := data.FrameSize(); got != 4 {
		t.Errorf("expected frame size 4, got %d", got)
	}
}

func TestAudioDataDurationEmpty(t *testing.T) {
	data := &AudioData{}
	if got := data.Duration(); got != 0 {
		t.Errorf("expected 0 duration, got %v", got)
	}
}

func TestRegistrySelection(t *testing.T) {
	registry := NewDefaultRegistry()

	tests := []struct {
		enc  sniff.Encoding
		want string
	}{
		{sniff.EncodingWav, "WAV"},
		{sniff.EncodingMpeg, "MPEG"},
		{sniff.EncodingVorbis, "Ogg Vorbis"},
		{sniff.EncodingAiff, "AIFF"},
	}

	for _, tt := range tests {
		decoder := registry.ForEncoding(tt.enc)
		if decoder == nil {
			t.Errorf("no decoder for %v", tt.enc)
			continue
		}
		if decoder.FormatName() != tt.want {
			t.Errorf("decoder for %v is %s, want %s", tt.enc, decoder.FormatName(), tt.want)
		}
	}

	if registry.ForEncoding(sniff.EncodingUnknown) != nil {
		t.Error("registry returned a decoder for EncodingUnknown")
	}

	if len(registry.SupportedFormats()) != 4 {
		t.Errorf("expected 4 supported formats, got %v", registry.SupportedFormats())
	}
}
