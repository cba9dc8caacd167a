package preview

import (
	"fmt"
	"log/slog"
)

// NewTransport creates a playback transport by configured kind: "malgo"
// (PCM device), "beep" (speaker), "null" (silent), or "auto" (the first
// available of malgo, beep, null). The malgo and beep backends both need
// cgo; in a CGO_ENABLED=0 build they return an error and "auto" falls
// through to the null transport.
func NewTransport(kind string) (Transport, error) {
	switch kind {
	case "", "auto":
		if transport, err := newDeviceTransport(); err == nil {
			slog.Debug("auto-selected device transport")
			return transport, nil
		}
		if transport, err := newSpeakerTransport(); err == nil {
			slog.Debug("device transport unavailable, using beep")
			return transport, nil
		}
		slog.Warn("no audio backend available, previews will be silent")
		return NewNullTransport(), nil
	case "malgo":
		return newDeviceTransport()
	case "beep":
		return newSpeakerTransport()
	case "null":
		return NewNullTransport(), nil
	default:
		return nil, fmt.Errorf("unknown preview transport %q", kind)
	}
}
