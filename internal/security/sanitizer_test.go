package security

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain text unchanged", "counted float twice", "counted float twice"},
		{"HTML stripped", "<script>alert(1)</script>note", "note"},
		{"Tags removed, text kept", "<b>cash short</b>", "cash short"},
		{"Whitespace trimmed", "  padded  ", "padded"},
		{"Null bytes removed", "a\x00b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText_LengthCap(t *testing.T) {
	long := strings.Repeat("a", 2000)
	if got := SanitizeText(long); len(got) != maxNoteLength {
		t.Errorf("len = %d, want %d", len(got), maxNoteLength)
	}
}
