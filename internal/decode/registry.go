package decode

import (
	"log/slog"

	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// Registry maps sniffed encodings to decoders. Selection is always by
// encoding, never by filename: the payloads come out of archive entries
// whose names carry no reliable extension.
type Registry struct {
	decoders map[sniff.Encoding]Decoder
}

// NewRegistry creates an empty decoder registry
func NewRegistry() *Registry {
	slog.Debug("creating new decoder registry")
	return &Registry{
		decoders: make(map[sniff.Encoding]Decoder),
	}
}

// NewDefaultRegistry creates a registry with the full decoder roster:
// WAV, MPEG, Ogg Vorbis, and AIFF
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()

	registry.Register(NewWavDecoder())
	registry.Register(NewMpegDecoder())
	registry.Register(NewVorbisDecoder())
	registry.Register(NewAiffDecoder())

	slog.Info("default decoder registry initialized",
		"supported_formats", registry.SupportedFormats())

	return registry
}

// Register adds a decoder, replacing any prior decoder for the same encoding
func (r *Registry) Register(decoder Decoder) {
	if decoder == nil {
		slog.Warn("attempted to register nil decoder")
		return
	}

	enc := decoder.Encoding()
	if _, exists := r.decoders[enc]; exists {
		slog.Info("replacing registered decoder", "encoding", enc.String())
	}
	r.decoders[enc] = decoder

	slog.Debug("decoder registered",
		"encoding", enc.String(),
		"format", decoder.FormatName(),
		"total_decoders", len(r.decoders))
}

// ForEncoding returns the decoder for a sniffed encoding, or nil
func (r *Registry) ForEncoding(enc sniff.Encoding) Decoder {
	decoder, ok := r.decoders[enc]
	if !ok {
		slog.Debug("no decoder for encoding", "encoding", enc.String())
		return nil
	}
	return decoder
}

// SupportedFormats returns the names of every registered format
func (r *Registry) SupportedFormats() []string {
	formats := make([]string, 0, len(r.decoders))
	for _, decoder := range r.decoders {
		formats = append(formats, decoder.FormatName())
	}
	return formats
}
