package clipboard

import (
	"testing"

	cb "github.com/atotto/clipboard"
)

func TestSystemRoundTrip(t *testing.T) {
	if cb.Unsupported {
		t.Skip("no clipboard utility available")
	}
	var s System
	prev, err := s.Get()
	if err != nil {
		t.Skipf("clipboard not readable here: %v", err)
	}
	defer s.Set(prev)

	if err := s.Set("voxpaste clipboard test"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get()
	if err != nil {
		t.Fatal(err)
	}
	if got != "voxpaste clipboard test" {
		t.Fatalf("got %q", got)
	}
}

func TestPasteChord(t *testing.T) {
	tests := []struct {
		goos  string
		super bool
		name  string
	}{
		{"linux", false, "Ctrl+V"},
		{"windows", false, "Ctrl+V"},
		{"freebsd", false, "Ctrl+V"},
		{"darwin", true, "Cmd+V"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			if got := pasteUsesSuper(tt.goos); got != tt.super {
				t.Errorf("pasteUsesSuper(%q) = %v, want %v", tt.goos, got, tt.super)
			}
			if got := chordName(tt.goos); got != tt.name {
				t.Errorf("chordName(%q) = %q, want %q", tt.goos, got, tt.name)
			}
		})
	}
}
