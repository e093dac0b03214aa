package status

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/lastcord/internal/errmsg"
	"github.com/llehouerou/lastcord/internal/presence"
	"github.com/llehouerou/lastcord/internal/ui/render"
	"github.com/llehouerou/lastcord/internal/ui/styles"
)

const labelWidth = 12

// View implements tea.Model.
func (m Model) View() string {
	s := styles.T().S()
	inner := max(m.width-4, 20) // border and padding

	lines := []string{
		render.Row(styles.Gradient(m.title, styles.T().Primary, styles.T().Secondary), m.gatewayBadge(), inner),
		s.Subtle.Render(render.Separator(inner)),
		m.field("Playing", m.nowPlaying(inner-labelWidth)),
		m.field("Scrobbled", m.scrobbleLine(inner-labelWidth)),
		m.field("Presence", m.presenceLine(inner-labelWidth)),
		"",
		s.Label.Render(fmt.Sprintf("Rules (%d/%d enabled)", m.rulesEnabled, m.rulesCount)),
	}
	if !m.hideRules {
		lines = append(lines, m.ruleLines(inner)...)
	}

	if len(m.errors) > 0 {
		lines = append(lines, "", s.Label.Render("Errors"))
		for _, e := range m.errors {
			text := errmsg.Format(errmsg.Op(e.Operation), e.Err)
			when := humanize.RelTime(e.At, m.now(), "ago", "from now")
			lines = append(lines, s.Error.Render(render.Truncate(text, inner-len(when)-1))+" "+s.Subtle.Render(when))
		}
	}

	lines = append(lines, "")
	if m.showHelp {
		for _, l := range m.keys.Help() {
			lines = append(lines, s.Muted.Render(render.Truncate(l, inner)))
		}
	} else {
		lines = append(lines, s.Subtle.Render(render.Truncate(m.keys.Hints(), inner)))
	}
	return s.Panel.Width(inner + 2).Render(strings.Join(lines, "\n"))
}

func (m Model) field(label, value string) string {
	return styles.T().S().Muted.Render(render.TruncateAndPad(label, labelWidth)) + value
}

func (m Model) gatewayBadge() string {
	s := styles.T().S()
	switch m.gateway.Current {
	case "ready":
		return s.Success.Render("● discord")
	case "disconnected":
		if m.gateway.Err != nil {
			return s.Error.Render("● discord: " + render.Truncate(m.gateway.Err.Error(), 30))
		}
		return s.Subtle.Render("○ discord")
	default:
		return m.spinner.View() + " " + s.Warning.Render("discord: "+m.gateway.Current)
	}
}

func (m Model) nowPlaying(width int) string {
	s := styles.T().S()
	if m.track == nil {
		return s.Subtle.Render("nothing")
	}
	text := m.track.Artist + " - " + m.track.Title
	if l := presence.FormatLength(m.track.Length); l != "" {
		text += " (" + l + ")"
	}
	since := "started " + humanize.RelTime(m.startedAt, m.now(), "ago", "from now")
	return render.Row(s.Playing.Render(render.Truncate(text, width-len(since)-1)), s.Subtle.Render(since), width)
}

func (m Model) scrobbleLine(width int) string {
	s := styles.T().S()
	if m.lastScrobble == nil {
		return s.Subtle.Render("none yet")
	}
	e := m.lastScrobble
	text := e.Track.Artist + " - " + e.Track.Title
	var state string
	switch {
	case e.Err == nil:
		state = s.Success.Render("✓")
	case e.Queued:
		state = s.Warning.Render("queued")
	default:
		state = s.Error.Render("failed")
	}
	count := fmt.Sprintf("%d this session", m.scrobbles)
	return render.Row(state+" "+render.Truncate(text, width-len(count)-10), s.Subtle.Render(count), width)
}

func (m Model) presenceLine(width int) string {
	s := styles.T().S()
	if m.presence == nil {
		return s.Subtle.Render("not set")
	}
	text := m.presence.Text
	if text == "" {
		text = "(cleared)"
	}
	stats := fmt.Sprintf("%d sent, %d dropped", m.presences, m.dropped)
	line := render.Truncate(text, width-len(stats)-1)
	if !m.presence.Sent {
		line = s.Warning.Render(line)
	}
	return render.Row(line, s.Subtle.Render(stats), width)
}

func (m Model) ruleLines(width int) []string {
	s := styles.T().S()
	if len(m.rules) == 0 {
		return []string{s.Subtle.Render("  no enabled rules")}
	}
	out := make([]string, 0, len(m.rules))
	for _, r := range m.rules {
		prefix := fmt.Sprintf("  %-3d %s", r.RuleID, render.TruncateAndPad(r.ProcessName, 20))
		if !r.Active {
			out = append(out, s.Subtle.Render("○"+prefix))
			continue
		}
		track := render.Truncate(r.Artist+" - "+r.Title, max(width-len(prefix)-2, 10))
		out = append(out, s.Playing.Render("●"+prefix)+" "+s.Base.Render(track))
	}
	return out
}
