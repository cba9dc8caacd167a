//go:build cgo

package preview

func newDeviceTransport() (Transport, error) {
	return NewMalgoTransport(), nil
}

func newSpeakerTransport() (Transport, error) {
	return NewBeepTransport(), nil
}
