// Package render provides text helpers for the terminal views.
package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Sanitize removes control characters and invalid UTF-8 from s, and turns
// non-breaking spaces into spaces. Window titles carry all of these.
func Sanitize(s string) string {
	if utf8.ValidString(s) && strings.IndexFunc(s, needsMapping) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == utf8.RuneError:
			return -1
		case r == '\u00a0':
			return ' '
		case needsMapping(r):
			return -1
		}
		return r
	}, s)
}

func needsMapping(r rune) bool {
	return r == '\u00a0' || (r != '\t' && unicode.IsControl(r))
}

// Truncate shortens s to fit within maxWidth cells, adding "..." if truncated.
func Truncate(s string, maxWidth int) string {
	return runewidth.Truncate(Sanitize(s), maxWidth, "...")
}

// TruncateAndPad truncates s if necessary, then pads it to exactly width cells.
func TruncateAndPad(s string, width int) string {
	return runewidth.FillRight(Truncate(s, width), width)
}

// Row puts left and right on one line of the given width, at least one space apart.
func Row(left, right string, width int) string {
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

// Separator creates a horizontal line of the given width.
func Separator(width int) string {
	return strings.Repeat("─", max(width, 0))
}
