// Package combo validates EOCATR element-type sets and holds the static table
// of every condition combination that can form a rule.
package combo

import (
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/nstehr/eocatr-core/model"
)

// Constraint names a validity rule that an element-type set can break.
type Constraint string

const (
	MissingResult  Constraint = "missing_result"
	NoControllable Constraint = "c2_no_controllable" // needs Action or Tool
	NoContextual   Constraint = "c3_no_contextual"   // needs Environment, Object or Characteristic
)

// Violations lists every constraint the type set breaks, in a fixed order.
func Violations(types []model.ElementType) []Constraint {
	var hasResult, hasControl, hasContext bool
	for _, t := range types {
		switch {
		case t == model.Result:
			hasResult = true
		case t.Controllable():
			hasControl = true
		case t.Contextual():
			hasContext = true
		}
	}
	var out []Constraint
	if !hasResult {
		out = append(out, MissingResult)
	}
	if !hasControl {
		out = append(out, NoControllable)
	}
	if !hasContext {
		out = append(out, NoContextual)
	}
	return out
}

// IsValid reports Result ∧ (Action ∨ Tool) ∧ (Environment ∨ Object ∨ Characteristic).
func IsValid(types []model.ElementType) bool {
	return len(Violations(types)) == 0
}

// ValidCombination is one entry of the static table. Types holds the
// condition slots in E-O-C-A-T order followed by Result.
type ValidCombination struct {
	Types      []model.ElementType
	Pattern    string  // e.g. "O-A-R"
	Complexity int     // number of condition slots, 2..5
	Priority   float64 // 0..1
}

// Requires reports whether t is part of the combination.
func (c ValidCombination) Requires(t model.ElementType) bool {
	return slices.Contains(c.Types, t)
}

// Conditions returns the non-result slots.
func (c ValidCombination) Conditions() []model.ElementType {
	return c.Types[:len(c.Types)-1]
}

var table = sync.OnceValue(buildTable)

// Table returns the process-wide combination table. It is computed once and
// shared; callers must not modify it.
func Table() []ValidCombination { return table() }

// Stats counts the table's combinations by complexity.
func Stats() map[int]int {
	out := make(map[int]int)
	for _, c := range Table() {
		out[c.Complexity]++
	}
	return out
}

// PatternName renders the condition types in canonical order followed by R.
func PatternName(types []model.ElementType) string {
	var letters []string
	for _, t := range model.NonResultTypes {
		if slices.Contains(types, t) {
			letters = append(letters, t.Letter())
		}
	}
	letters = append(letters, model.Result.Letter())
	return strings.Join(letters, "-")
}

func buildTable() []ValidCombination {
	n := len(model.NonResultTypes)
	var out []ValidCombination
	for mask := 1; mask < 1<<n; mask++ {
		var types []model.ElementType
		for i, t := range model.NonResultTypes {
			if mask&(1<<i) != 0 {
				types = append(types, t)
			}
		}
		if len(types) < 2 || len(types) > 5 {
			continue
		}
		types = append(types, model.Result)
		if !IsValid(types) {
			continue
		}
		out = append(out, ValidCombination{
			Types:      types,
			Pattern:    PatternName(types),
			Complexity: len(types) - 1,
			Priority:   priority(types),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

func priority(types []model.ElementType) float64 {
	p := 0.3
	conditions := 0
	for _, t := range types {
		if t == model.Result {
			continue
		}
		conditions++
		if t == model.Tool {
			p += 0.3
		}
		if t.Contextual() {
			p += 0.1
		}
	}
	if conditions == 3 {
		p += 0.2
	}
	return min(p, 1.0)
}
