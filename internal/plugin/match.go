package plugin

import (
	"slices"
	"sync"

	"github.com/llehouerou/lastcord/internal/events"
	"github.com/llehouerou/lastcord/internal/scanner"
)

// Result is the track extracted by the active rule.
type Result struct {
	RuleID      int64
	ProcessName string
	Artist      string
	Title       string
}

// Match walks rules in order and returns the first rule whose process is in
// the snapshot and whose pattern matches that process's window title. The
// returned states cover every rule; only the selected one is active.
func Match(rules []Rule, snapshot []scanner.Record) (Result, bool, []events.RuleState) {
	states := make([]events.RuleState, len(rules))
	for i, r := range rules {
		states[i] = events.RuleState{RuleID: r.ID, ProcessName: r.ProcessName}
	}

	for i, r := range rules {
		rec, ok := findProcess(snapshot, r.ProcessName)
		if !ok {
			continue
		}
		artist, title, ok := r.Extract(rec.WindowTitle)
		if !ok {
			continue
		}
		states[i].Active = true
		states[i].Artist = artist
		states[i].Title = title
		return Result{
			RuleID:      r.ID,
			ProcessName: r.ProcessName,
			Artist:      artist,
			Title:       title,
		}, true, states
	}
	return Result{}, false, states
}

func findProcess(snapshot []scanner.Record, name string) (scanner.Record, bool) {
	for _, rec := range snapshot {
		if rec.ProcessName == name {
			return rec, true
		}
	}
	return scanner.Record{}, false
}

// Matcher runs Match and keeps the latest per-rule display state.
type Matcher struct {
	bus *events.Bus

	mu     sync.RWMutex
	states []events.RuleState
}

// NewMatcher creates a Matcher publishing on bus.
func NewMatcher(bus *events.Bus) *Matcher {
	return &Matcher{bus: bus}
}

// Match selects the active rule and records every rule's state.
func (m *Matcher) Match(rules []Rule, snapshot []scanner.Record) (Result, bool) {
	res, ok, states := Match(rules, snapshot)

	m.mu.Lock()
	m.states = states
	m.mu.Unlock()

	m.bus.PublishRuleStatus(events.RuleStatusChange{Rules: slices.Clone(states)})
	return res, ok
}

// States returns the rule states from the latest tick.
func (m *Matcher) States() []events.RuleState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.states)
}
