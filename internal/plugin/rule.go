// Package plugin holds match rules, the persisted rule set and the matcher
// that selects the active player from a process snapshot.
package plugin

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidRule is wrapped by every rule validation failure.
	ErrInvalidRule = errors.New("invalid rule")
	// ErrRuleNotFound is returned when a rule ID is unknown.
	ErrRuleNotFound = errors.New("rule not found")
)

// RuleError describes why a rule was rejected.
type RuleError struct {
	Field  string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid rule %s: %s", e.Field, e.Reason)
}

func (e *RuleError) Unwrap() error {
	return ErrInvalidRule
}

// Definition is the stored form of a rule.
type Definition struct {
	ID          int64
	ProcessName string
	Pattern     string
	ArtistGroup int
	TitleGroup  int
	Enabled     bool
}

// Rule is a validated Definition with its compiled pattern.
type Rule struct {
	Definition
	re *regexp.Regexp
}

// NewRule validates def and compiles its pattern.
func NewRule(def Definition) (Rule, error) {
	def.ProcessName = strings.TrimSpace(def.ProcessName)
	if def.ProcessName == "" {
		return Rule{}, &RuleError{Field: "process", Reason: "must not be empty"}
	}
	if def.Pattern == "" {
		return Rule{}, &RuleError{Field: "pattern", Reason: "must not be empty"}
	}
	re, err := regexp.Compile(def.Pattern)
	if err != nil {
		return Rule{}, &RuleError{Field: "pattern", Reason: err.Error()}
	}
	groups := re.NumSubexp()
	if err := checkGroup("artist group", def.ArtistGroup, groups); err != nil {
		return Rule{}, err
	}
	if err := checkGroup("title group", def.TitleGroup, groups); err != nil {
		return Rule{}, err
	}
	return Rule{Definition: def, re: re}, nil
}

func checkGroup(field string, index, groups int) error {
	if index < 1 {
		return &RuleError{Field: field, Reason: "must be at least 1"}
	}
	if index > groups {
		return &RuleError{
			Field:  field,
			Reason: fmt.Sprintf("pattern has %d capture groups, need %d", groups, index),
		}
	}
	return nil
}

// Extract applies the pattern to a window title.
func (r Rule) Extract(windowTitle string) (artist, title string, ok bool) {
	if r.re == nil {
		return "", "", false
	}
	m := r.re.FindStringSubmatch(windowTitle)
	if m == nil {
		return "", "", false
	}
	return m[r.ArtistGroup], m[r.TitleGroup], true
}

// Regexp returns the compiled pattern.
func (r Rule) Regexp() *regexp.Regexp {
	return r.re
}
