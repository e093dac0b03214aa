//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpRuleAdd,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpRuleAdd,
			err:      errors.New("pattern has 1 capture group, title needs group 2"),
			expected: "Failed to add rule: pattern has 1 capture group, title needs group 2",
		},
		{
			name:     "scrobble operation",
			op:       OpLastfmScrobble,
			err:      errors.New("network error"),
			expected: "Failed to scrobble: network error",
		},
		{
			name:     "gateway operation",
			op:       OpDiscordConnect,
			err:      errors.New("connection refused"),
			expected: "Failed to connect to Discord gateway: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.op, tt.err)
			if result != tt.expected {
				t.Errorf("Format(%q, %v) = %q, want %q", tt.op, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpRuleImport,
			context:  "foobar.json",
			err:      nil,
			expected: "",
		},
		{
			name:     "includes context",
			op:       OpRuleImport,
			context:  "spotify.json",
			err:      errors.New("missing regex.pattern"),
			expected: "Failed to import plugin file 'spotify.json': missing regex.pattern",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpRuleImport,
			context:  "",
			err:      errors.New("missing regex.pattern"),
			expected: "Failed to import plugin file: missing regex.pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWith(tt.op, tt.context, tt.err)
			if result != tt.expected {
				t.Errorf("FormatWith() = %q, want %q", result, tt.expected)
			}
		})
	}
}
