package browsercap

import "testing"

func TestNew_RejectsUnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "carrier-pigeon"})
	if err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
