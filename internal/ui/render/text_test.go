package render

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean string unchanged", "Daft Punk - One More Time", "Daft Punk - One More Time"},
		{"control characters dropped", "Artist\x00 - Title\x1b", "Artist - Title"},
		{"tab kept", "a\tb", "a\tb"},
		{"nbsp replaced", "a\u00a0b", "a b"},
		{"invalid bytes dropped", "caf\xe9", "caf"},
		{"wide characters kept", "坂本龍一 - 戦場のメリークリスマス", "坂本龍一 - 戦場のメリークリスマス"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"no truncation needed", "hello", 10, "hello"},
		{"exact fit", "hello", 5, "hello"},
		{"truncation with ellipsis", "hello world", 8, "hello..."},
		{"very short max width", "hello", 3, "..."},
		{"empty string", "", 10, ""},
		{"wide characters count double", "日本語テキスト", 7, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.input, tt.maxWidth)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestTruncateAndPad(t *testing.T) {
	if got := TruncateAndPad("abc", 6); got != "abc   " {
		t.Errorf("TruncateAndPad pad = %q", got)
	}
	if got := TruncateAndPad("abcdefgh", 6); got != "abc..." {
		t.Errorf("TruncateAndPad truncate = %q", got)
	}
}

func TestRow(t *testing.T) {
	got := Row("left", "right", 20)
	if len(got) != 20 {
		t.Errorf("Row length = %d, want 20", len(got))
	}
	if !strings.HasPrefix(got, "left") || !strings.HasSuffix(got, "right") {
		t.Errorf("Row = %q", got)
	}

	tight := Row("left", "right", 5)
	if tight != "left right" {
		t.Errorf("tight Row = %q, want minimum gap of 1", tight)
	}
}

func TestSeparator(t *testing.T) {
	if got := Separator(10); got != "──────────" {
		t.Errorf("Separator(10) = %q", got)
	}
	if got := Separator(-1); got != "" {
		t.Errorf("Separator(-1) = %q", got)
	}
}
