package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/llehouerou/lastcord/internal/events"
	"github.com/llehouerou/lastcord/internal/gateway"
)

type fakeTarget struct {
	state gateway.State
	game  string
	calls []string
	allow bool
}

func (f *fakeTarget) State() gateway.State { return f.state }

func (f *fakeTarget) Game() string { return f.game }

func (f *fakeTarget) SetPresence(text string) (bool, error) {
	f.calls = append(f.calls, text)
	if !f.allow {
		return false, nil
	}
	f.game = text
	return true, nil
}

func TestPublisher_Tick(t *testing.T) {
	track := events.Track{Artist: "A", Title: "B"}
	playing := true
	source := func() (events.Track, bool) { return track, playing }

	target := &fakeTarget{state: gateway.Ready, allow: true}
	p := NewPublisher(source, NewFormatter(""), nil)

	p.Tick()
	assert.Empty(t, target.calls, "no target attached")

	p.SetTarget(target)
	p.Tick()
	p.Tick()
	assert.Equal(t, []string{"A - B"}, target.calls, "unchanged text is not resent")

	playing = false
	p.Tick()
	assert.Equal(t, []string{"A - B", ""}, target.calls, "idle clears the activity")
}

func TestPublisher_RetriesDroppedUpdates(t *testing.T) {
	source := func() (events.Track, bool) { return events.Track{Artist: "A", Title: "B"}, true }
	target := &fakeTarget{state: gateway.Ready}
	p := NewPublisher(source, NewFormatter(""), nil)
	p.SetTarget(target)

	p.Tick()
	target.allow = true
	p.Tick()
	p.Tick()

	assert.Equal(t, []string{"A - B", "A - B"}, target.calls)
	assert.Equal(t, "A - B", target.game)
}

func TestPublisher_SkipsWhenNotReady(t *testing.T) {
	source := func() (events.Track, bool) { return events.Track{Artist: "A", Title: "B"}, true }
	target := &fakeTarget{state: gateway.Handshaking, allow: true}
	p := NewPublisher(source, NewFormatter(""), nil)
	p.SetTarget(target)

	p.Tick()

	assert.Empty(t, target.calls)
}
