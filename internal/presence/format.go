// Package presence turns the current track into presence text and keeps the
// gateway's activity in sync with it.
package presence

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/llehouerou/lastcord/internal/events"
)

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = "{artist} - {title}"

var placeholder = regexp.MustCompile(`\{([a-z]+)\}`)

// Formatter renders a track through a template. Known placeholders are
// {artist}, {title}, {album}, {length}, {tag} and {tags}; anything else is
// left as written.
type Formatter struct {
	template string
}

// NewFormatter creates a formatter, falling back to DefaultTemplate.
func NewFormatter(template string) Formatter {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	return Formatter{template: template}
}

// Format renders t.
func (f Formatter) Format(t events.Track) string {
	out := placeholder.ReplaceAllStringFunc(f.template, func(m string) string {
		switch m[1 : len(m)-1] {
		case "artist":
			return t.Artist
		case "title":
			return t.Title
		case "album":
			return t.Album
		case "length":
			return FormatLength(t.Length)
		case "tag":
			if len(t.Tags) > 0 {
				return t.Tags[0]
			}
			return ""
		case "tags":
			return strings.Join(t.Tags, ", ")
		default:
			return m
		}
	})
	return strings.TrimSpace(out)
}

// FormatLength renders d as m:ss, or h:mm:ss from one hour. Zero renders empty.
func FormatLength(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	secs := int64(d / time.Second)
	h, m, s := secs/3600, (secs/60)%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
