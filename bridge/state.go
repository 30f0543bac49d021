package bridge

import (
	"fmt"
	"math"
	"strings"

	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

const (
	numericTolerance = 0.1
	lastActionKey    = "last_action"

	weightCondition   = 2.0
	weightMissingObj  = 1.5
	weightMismatchObj = 0.5
	minRuleCost       = 0.01
)

// holds reports whether the state establishes element e: the slot's section
// has e.Content as a truthy key, or some string value equal to it.
func holds(s model.GameState, e model.SymbolicElement) bool {
	section := s.Section(e.Type)
	if v, ok := section[e.Content]; ok {
		return model.Truthy(v)
	}
	for _, v := range section {
		if str, ok := v.(string); ok && strings.EqualFold(str, e.Content) {
			return true
		}
	}
	return false
}

// applicable reports whether every input of r holds in s.
func applicable(s model.GameState, r *rules.StandardizedRule) bool {
	for _, in := range r.Inputs {
		if !holds(s, in) {
			return false
		}
	}
	return true
}

// InputMatch is the share of r's inputs that hold in s; 1 for a rule with no
// inputs.
func InputMatch(s model.GameState, r *rules.StandardizedRule) float64 {
	if len(r.Inputs) == 0 {
		return 1
	}
	n := 0
	for _, in := range r.Inputs {
		if holds(s, in) {
			n++
		}
	}
	return float64(n) / float64(len(r.Inputs))
}

// apply returns the state after r's outputs take effect: results and
// actions become conditions, tools become objects.
func apply(s model.GameState, r *rules.StandardizedRule) model.GameState {
	next := s.Clone()
	for _, out := range r.Outputs {
		switch out.Type {
		case model.Result:
			next.Conditions[out.Content] = true
		case model.Action:
			next.Conditions[out.Content] = true
			next.Conditions[lastActionKey] = out.Content
		case model.Tool:
			next.Objects[out.Content] = true
		}
	}
	return next
}

// ruleCost = 1 − 0.5·confidence − min(0.1·usage, 1), floored at 0.01.
func ruleCost(r *rules.StandardizedRule) float64 {
	c := 1 - 0.5*r.Confidence - math.Min(0.1*float64(r.Usage), 1)
	return math.Max(c, minRuleCost)
}

// heuristic counts unmet target conditions and environment entries (2.0
// each), missing target objects (1.5) and present but mismatched ones (0.5).
func heuristic(s model.GameState, target model.GameState) float64 {
	h := 0.0
	for k, want := range target.Conditions {
		if !valueMatches(want, s.Conditions[k]) {
			h += weightCondition
		}
	}
	for k, want := range target.Environment {
		if !valueMatches(want, s.Environment[k]) {
			h += weightCondition
		}
	}
	for k, want := range target.Objects {
		have, ok := s.Objects[k]
		switch {
		case !ok && !isFalse(want):
			h += weightMissingObj
		case ok && !valueMatches(want, have):
			h += weightMismatchObj
		}
	}
	return h
}

func satisfied(s model.GameState, target model.GameState) bool {
	for _, pair := range [][2]map[string]any{
		{target.Conditions, s.Conditions},
		{target.Objects, s.Objects},
		{target.Environment, s.Environment},
	} {
		for k, want := range pair[0] {
			if !valueMatches(want, pair[1][k]) {
				return false
			}
		}
	}
	return true
}

func isFalse(v any) bool {
	b, ok := v.(bool)
	return ok && !b
}

// valueMatches compares a target value with an observed one: numbers within
// 0.1, booleans by truthiness (absent counts as false), strings equal or
// contained in one another.
func valueMatches(want, have any) bool {
	switch w := want.(type) {
	case bool:
		return model.Truthy(have) == w
	case string:
		h, ok := have.(string)
		if !ok {
			return w != "" && have != nil && fmt.Sprint(have) == w
		}
		w, h = strings.ToLower(w), strings.ToLower(h)
		return w == h || (h != "" && (strings.Contains(h, w) || strings.Contains(w, h)))
	case nil:
		return have == nil
	}
	if wf, ok := model.ToFloat(want); ok {
		hf, ok := model.ToFloat(have)
		return ok && math.Abs(wf-hf) <= numericTolerance
	}
	return fmt.Sprint(want) == fmt.Sprint(have)
}
