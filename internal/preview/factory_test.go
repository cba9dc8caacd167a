package preview

import "testing"

func TestNewTransportNull(t *testing.T) {
	transport, err := NewTransport("null")
	if err != nil {
		t.Fatalf("NewTransport failed: %v", err)
	}
	if _, ok := transport.(*NullTransport); !ok {
		t.Errorf("expected *NullTransport, got %T", transport)
	}
}

func TestNewTransportUnknownKind(t *testing.T) {
	if _, err := NewTransport("gramophone"); err == nil {
		t.Fatal("expected error for unknown transport kind")
	}
}

// Transport construction is lazy, so this never touches a real audio
// device. "auto" must always hand back something usable: a device or
// speaker backend when the build has cgo, the null transport otherwise.
func TestNewTransportAutoAlwaysSucceeds(t *testing.T) {
	for _, kind := range []string{"", "auto"} {
		transport, err := NewTransport(kind)
		if err != nil {
			t.Fatalf("NewTransport(%q) failed: %v", kind, err)
		}
		if transport == nil {
			t.Fatalf("NewTransport(%q) returned nil transport", kind)
		}
	}
}
