package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"long yes", "YES\n", true},
		{"no", "n\n", false},
		{"empty", "\n", false},
		{"eof", "", false},
		{"yes without newline", "y", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := newPromptConfirmer(strings.NewReader(tt.input), &out)
			got, err := c.Confirm("Delete these?", []string{"foo/1.0", "bar/2.0"})
			if err != nil {
				t.Fatalf("Confirm failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if !strings.Contains(out.String(), "Delete these?") || !strings.Contains(out.String(), "bar/2.0") {
				t.Errorf("Expected prompt and items, got %q", out.String())
			}
		})
	}
}

func TestOrNA(t *testing.T) {
	if orNA("") != "N/A" || orNA("x") != "x" {
		t.Error("Unexpected orNA result")
	}
}
