package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/llehouerou/lastcord/internal/events"
)

// Store persists the ordered rule list. Several processes may share one
// store; RulesRevision tells a Set when someone else changed it.
type Store interface {
	LoadRules(ctx context.Context) ([]Definition, error)
	SaveRules(ctx context.Context, defs []Definition) error
	NextRuleID(ctx context.Context) (int64, error)
	RulesRevision(ctx context.Context) (int64, error)
}

// Set is the ordered rule list. Readers get immutable snapshots; writers are
// serialized, persist the new list and then publish it atomically.
type Set struct {
	store  Store
	bus    *events.Bus
	logger *slog.Logger

	mu       sync.Mutex
	rules    atomic.Pointer[[]Rule]
	revision int64 // store revision the snapshot was loaded from
	lastID   int64 // ID sequence of a set without store
}

// NewSet creates an empty rule set. store may be nil for an in-memory set.
func NewSet(store Store, bus *events.Bus, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Set{
		store:  store,
		bus:    bus,
		logger: logger.With("component", "rules"),
	}
	empty := []Rule{}
	s.rules.Store(&empty)
	return s
}

// Load replaces the set with the stored rules. Stored rules that no longer
// validate are skipped and logged.
func (s *Set) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Refresh reloads the set when the store was changed since the last load,
// typically by another process. It reports whether it reloaded.
func (s *Set) Refresh(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rev, err := s.store.RulesRevision(ctx)
	if err != nil {
		return false, fmt.Errorf("read rules revision: %w", err)
	}
	if rev == s.revision {
		return false, nil
	}
	if err := s.load(ctx); err != nil {
		return false, err
	}
	s.logger.Info("rules reloaded", "count", len(*s.rules.Load()))
	return true, nil
}

func (s *Set) load(ctx context.Context) error {
	// Revision first: a save racing the load only causes one more reload.
	rev, err := s.store.RulesRevision(ctx)
	if err != nil {
		return fmt.Errorf("read rules revision: %w", err)
	}
	defs, err := s.store.LoadRules(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	rules := make([]Rule, 0, len(defs))
	for _, def := range defs {
		r, err := NewRule(def)
		if err != nil {
			s.logger.Warn("skipping stored rule", "id", def.ID, "process", def.ProcessName, "error", err)
			continue
		}
		rules = append(rules, r)
	}
	s.revision = rev
	s.rules.Store(&rules)
	s.publish(rules)
	return nil
}

// Rules returns all rules in configured order.
func (s *Set) Rules() []Rule {
	return slices.Clone(*s.rules.Load())
}

// Enabled returns the enabled rules in configured order.
func (s *Set) Enabled() []Rule {
	all := *s.rules.Load()
	out := make([]Rule, 0, len(all))
	for _, r := range all {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the rule with the given ID.
func (s *Set) Get(id int64) (Rule, bool) {
	for _, r := range *s.rules.Load() {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Add validates def and appends it with an ID no other rule ever had.
func (s *Set) Add(ctx context.Context, def Definition) (Rule, error) {
	var added Rule
	err := s.mutate(ctx, func(rules []Rule) ([]Rule, error) {
		r, err := NewRule(def)
		if err != nil {
			return nil, err
		}
		if r.ID, err = s.nextID(ctx, rules); err != nil {
			return nil, err
		}
		added = r
		return append(rules, r), nil
	})
	return added, err
}

func (s *Set) nextID(ctx context.Context, rules []Rule) (int64, error) {
	if s.store != nil {
		id, err := s.store.NextRuleID(ctx)
		if err != nil {
			return 0, fmt.Errorf("reserve rule id: %w", err)
		}
		return id, nil
	}
	for _, r := range rules {
		s.lastID = max(s.lastID, r.ID)
	}
	s.lastID++
	return s.lastID, nil
}

// Enable marks a rule enabled.
func (s *Set) Enable(ctx context.Context, id int64) error {
	return s.setEnabled(ctx, id, true)
}

// Disable marks a rule disabled.
func (s *Set) Disable(ctx context.Context, id int64) error {
	return s.setEnabled(ctx, id, false)
}

func (s *Set) setEnabled(ctx context.Context, id int64, enabled bool) error {
	return s.mutate(ctx, func(rules []Rule) ([]Rule, error) {
		i := indexOf(rules, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %d", ErrRuleNotFound, id)
		}
		rules[i].Enabled = enabled
		return rules, nil
	})
}

// Remove deletes a rule.
func (s *Set) Remove(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(rules []Rule) ([]Rule, error) {
		i := indexOf(rules, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %d", ErrRuleNotFound, id)
		}
		return slices.Delete(rules, i, i+1), nil
	})
}

// Move places a rule at position (0-based), clamped to the list bounds.
func (s *Set) Move(ctx context.Context, id int64, position int) error {
	return s.mutate(ctx, func(rules []Rule) ([]Rule, error) {
		i := indexOf(rules, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %d", ErrRuleNotFound, id)
		}
		r := rules[i]
		rules = slices.Delete(rules, i, i+1)
		position = min(max(position, 0), len(rules))
		return slices.Insert(rules, position, r), nil
	})
}

func (s *Set) mutate(ctx context.Context, fn func([]Rule) ([]Rule, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(slices.Clone(*s.rules.Load()))
	if err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.SaveRules(ctx, Definitions(next)); err != nil {
			return fmt.Errorf("save rules: %w", err)
		}
		// Our own save is not news to Refresh. On error the next Refresh
		// reloads what we just wrote, which is harmless.
		if rev, err := s.store.RulesRevision(ctx); err == nil {
			s.revision = rev
		}
	}
	s.rules.Store(&next)
	s.publish(next)
	return nil
}

func (s *Set) publish(rules []Rule) {
	enabled := 0
	for _, r := range rules {
		if r.Enabled {
			enabled++
		}
	}
	s.bus.PublishRules(events.RulesChange{Count: len(rules), Enabled: enabled})
}

// Definitions returns the stored form of rules.
func Definitions(rules []Rule) []Definition {
	defs := make([]Definition, len(rules))
	for i, r := range rules {
		defs[i] = r.Definition
	}
	return defs
}

func indexOf(rules []Rule, id int64) int {
	return slices.IndexFunc(rules, func(r Rule) bool { return r.ID == id })
}
