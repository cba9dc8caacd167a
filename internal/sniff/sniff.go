package sniff

import (
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
)

// Encoding identifies the audio encoding of a raw byte payload
type Encoding int

const (
	// EncodingUnknown means no magic-number rule matched; callers must
	// treat the payload as unplayable, not as an error
	EncodingUnknown Encoding = iota
	EncodingVorbis
	EncodingMpeg
	EncodingWav
	EncodingAiff
)

// String returns a human-readable name for the encoding
func (e Encoding) String() string {
	switch e {
	case EncodingVorbis:
		return "ogg-vorbis"
	case EncodingMpeg:
		return "mpeg"
	case EncodingWav:
		return "wav"
	case EncodingAiff:
		return "aiff"
	default:
		return "unknown"
	}
}

// Ext returns the conventional file extension for the encoding, including
// the leading dot, or empty for EncodingUnknown
func (e Encoding) Ext() string {
	switch e {
	case EncodingVorbis:
		return ".ogg"
	case EncodingMpeg:
		return ".mp3"
	case EncodingWav:
		return ".wav"
	case EncodingAiff:
		return ".aiff"
	default:
		return ""
	}
}

// Classify inspects the header bytes of data and returns its encoding.
// Rules are checked in priority order and the first match wins; rules that
// need more bytes than the buffer holds are skipped. Pure and deterministic.
func Classify(data []byte) Encoding {
	// Ogg container (Vorbis for our purposes): "OggS" capture pattern
	if len(data) >= 4 && data[0] == 'O' && data[1] == 'g' && data[2] == 'g' && data[3] == 'S' {
		return EncodingVorbis
	}

	// MPEG audio with a leading ID3v2 tag
	if len(data) >= 3 && data[0] == 'I' && data[1] == 'D' && data[2] == '3' {
		return EncodingMpeg
	}

	// Bare MPEG frame sync
	if len(data) >= 2 && data[0] == 0xFF {
		switch data[1] {
		case 0xFB, 0xF3, 0xF2:
			return EncodingMpeg
		}
	}

	// RIFF/WAVE
	if len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'A' && data[10] == 'V' && data[11] == 'E' {
		return EncodingWav
	}

	// IFF FORM/AIFF
	if len(data) >= 12 &&
		data[0] == 'F' && data[1] == 'O' && data[2] == 'R' && data[3] == 'M' &&
		data[8] == 'A' && data[9] == 'I' && data[10] == 'F' && data[11] == 'F' {
		return EncodingAiff
	}

	return EncodingUnknown
}

// Describe returns the detected MIME type of data for logging and the
// inspect command. This is informational only; Classify drives all
// playback decisions.
func Describe(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}

	mtype := mimetype.Detect(data)
	slog.Debug("mime detection", "mime", mtype.String(), "bytes", len(data))
	return mtype.String()
}
