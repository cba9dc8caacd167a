package sniff

import (
	"bytes"
	"testing"
)

func TestClassifyOgg(t *testing.T) {
	data := append([]byte("OggS"), make([]byte, 24)...)

	enc := Classify(data)
	if enc != EncodingVorbis {
		t.Errorf("expected EncodingVorbis, got %v", enc)
	}
}

func TestClassifyID3(t *testing.T) {
	data := append([]byte("ID3"), 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)

	enc := Classify(data)
	if enc != EncodingMpeg {
		t.Errorf("expected EncodingMpeg, got %v", enc)
	}
}

func TestClassifyFrameSync(t *testing.T) {
	tests := []struct {
		name   string
		second byte
		want   Encoding
	}{
		{"mpeg1 layer3", 0xFB, EncodingMpeg},
		{"mpeg2 layer3", 0xF3, EncodingMpeg},
		{"mpeg2.5 layer3", 0xF2, EncodingMpeg},
		{"not a sync pattern", 0xE0, EncodingUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte{0xFF, tt.second, 0x90, 0x64}
			if got := Classify(data); got != tt.want {
				t.Errorf("Classify(0xFF %#x) = %v, want %v", tt.second, got, tt.want)
			}
		})
	}
}

func TestClassifyWav(t *testing.T) {
	data := make([]byte, 44)
	copy(data[0:], "RIFF")
	copy(data[8:], "WAVE")

	enc := Classify(data)
	if enc != EncodingWav {
		t.Errorf("expected EncodingWav, got %v", enc)
	}
}

func TestClassifyAiff(t *testing.T) {
	data := make([]byte, 12)
	copy(data[0:], "FORM")
	copy(data[8:], "AIFF")

	enc := Classify(data)
	if enc != EncodingAiff {
		t.Errorf("expected EncodingAiff, got %v", enc)
	}
}

func TestClassifyRiffButNotWave(t *testing.T) {
	// A RIFF container that is not WAVE (e.g. AVI) must not classify as WAV
	data := make([]byte, 12)
	copy(data[0:], "RIFF")
	copy(data[8:], "AVI ")

	if got := Classify(data); got != EncodingUnknown {
		t.Errorf("expected EncodingUnknown for RIFF/AVI, got %v", got)
	}
}

func TestClassifyShortInput(t *testing.T) {
	// Inputs shorter than a rule's window must skip the rule, never panic
	inputs := [][]byte{
		nil,
		{},
		{0xFF},
		{'O'},
		{'O', 'g', 'g'},
		{'I', 'D'},
		[]byte("RIFF"),     // too short for the WAVE check
		[]byte("RIFFxxxx"), // 8 bytes, still too short
	}

	for _, in := range inputs {
		if got := Classify(in); got != EncodingUnknown {
			t.Errorf("Classify(%v) = %v, want EncodingUnknown", in, got)
		}
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// "OggS" wins even if later bytes would satisfy the WAV rule
	data := make([]byte, 12)
	copy(data[0:], "OggS")
	copy(data[8:], "WAVE")

	if got := Classify(data); got != EncodingVorbis {
		t.Errorf("expected EncodingVorbis by priority, got %v", got)
	}
}

func TestEncodingStringAndExt(t *testing.T) {
	tests := []struct {
		enc  Encoding
		name string
		ext  string
	}{
		{EncodingVorbis, "ogg-vorbis", ".ogg"},
		{EncodingMpeg, "mpeg", ".mp3"},
		{EncodingWav, "wav", ".wav"},
		{EncodingAiff, "aiff", ".aiff"},
		{EncodingUnknown, "unknown", ""},
	}

	for _, tt := range tests {
		if tt.enc.String() != tt.name {
			t.Errorf("String() = %q, want %q", tt.enc.String(), tt.name)
		}
		if tt.enc.Ext() != tt.ext {
			t.Errorf("Ext() = %q, want %q", tt.enc.Ext(), tt.ext)
		}
	}
}

func TestDescribeDoesNotPanic(t *testing.T) {
	if got := Describe(nil); got == "" {
		t.Error("Describe(nil) returned empty string")
	}

	data := append([]byte("OggS"), bytes.Repeat([]byte{0}, 30)...)
	if got := Describe(data); got == "" {
		t.Error("Describe returned empty string for ogg header")
	}
}
