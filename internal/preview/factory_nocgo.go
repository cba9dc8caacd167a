//go:build !cgo

package preview

import "errors"

// Both audio backends reach the sound card through cgo: malgo binds
// miniaudio directly, and beep's speaker package sits on oto, which needs
// cgo on Linux and macOS.
var errCGORequired = errors.New("audio output requires a build with CGO enabled; " +
	"rebuild with CGO_ENABLED=1 or select the null transport")

func newDeviceTransport() (Transport, error) {
	return nil, errCGORequired
}

func newSpeakerTransport() (Transport, error) {
	return nil, errCGORequired
}
