package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nstehr/eocatr-core/combo"
	"github.com/nstehr/eocatr-core/model"
)

// ConnectThreshold is the minimum matched/total ratio for two rules to chain.
const ConnectThreshold = 0.3

// semanticGroups are interchangeable contents for value matching.
var semanticGroups = [][]string{
	{"tiger", "bear", "boar", "wolf", "predator"},
	{"berry", "plant", "mushroom", "food"},
	{"water", "river", "drink"},
	{"safe", "safety_up", "shelter", "cave"},
	{"injured", "hurt", "damage"},
	{"food_found", "resource_found"},
}

// StandardizedRule splits a rule into contextual inputs (E, O, C) and
// outputs (A, T, R). Both lists are in canonical slot order and derived from
// the rule's payload once, at construction.
type StandardizedRule struct {
	ID         string
	Type       string
	Inputs     []model.SymbolicElement
	Outputs    []model.SymbolicElement
	Confidence float64
	Usage      int
	Successes  int
	source     Rule
}

type usageCounter interface {
	Usage() int
	Successes() int
}

// Standardize projects r. It fails fast when the payload is malformed: no
// result, an unknown element type, a second Result among the conditions, or
// a pattern that breaks the controllable/contextual constraints.
func Standardize(r Rule) (*StandardizedRule, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil rule", ErrConstraintViolation)
	}
	pred := r.Prediction()
	if pred.Content == "" {
		return nil, fmt.Errorf("rule %s: %w", r.ID(), ErrMissingResult)
	}
	if pred.Type != model.Result {
		return nil, fmt.Errorf("rule %s: prediction has type %s: %w", r.ID(), pred.Type, ErrInvalidElementType)
	}

	s := &StandardizedRule{
		ID:         r.ID(),
		Type:       r.RuleType(),
		Confidence: clamp01(r.Confidence()),
		source:     r,
	}
	pattern := r.Pattern()
	types := make([]model.ElementType, 0, len(pattern)+1)
	for _, e := range pattern {
		switch {
		case !e.Type.Valid():
			return nil, fmt.Errorf("rule %s: element %q: %w", r.ID(), e.Content, ErrInvalidElementType)
		case e.Type == model.Result:
			return nil, fmt.Errorf("rule %s: result %q among conditions: %w", r.ID(), e.Content, ErrConstraintViolation)
		case e.Content == "":
			return nil, fmt.Errorf("rule %s: empty %s element: %w", r.ID(), e.Type, ErrConstraintViolation)
		case e.Type.Contextual():
			s.Inputs = append(s.Inputs, e)
		default:
			s.Outputs = append(s.Outputs, e)
		}
		types = append(types, e.Type)
	}
	types = append(types, model.Result)
	if v := combo.Violations(types); len(v) > 0 {
		return nil, fmt.Errorf("rule %s: %v: %w", r.ID(), v, ErrConstraintViolation)
	}
	s.Outputs = append(s.Outputs, pred)

	bySlot := func(a, b model.SymbolicElement) int { return int(a.Type) - int(b.Type) }
	slices.SortStableFunc(s.Inputs, bySlot)
	slices.SortStableFunc(s.Outputs, bySlot)

	if u, ok := r.(usageCounter); ok {
		s.Usage = u.Usage()
		s.Successes = u.Successes()
	}
	return s, nil
}

// StandardizeAll projects every rule, returning the well-formed ones and the
// errors for the rest.
func StandardizeAll(rs []Rule) ([]*StandardizedRule, []error) {
	var out []*StandardizedRule
	var errs []error
	for _, r := range rs {
		s, err := Standardize(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, s)
	}
	return out, errs
}

// Rule returns the rule this projection was built from.
func (s *StandardizedRule) Rule() Rule { return s.source }

// InputSignature serializes Inputs as "type:value" entries joined by "|".
// Characteristic is written as "condition".
func (s *StandardizedRule) InputSignature() string { return signature(s.Inputs) }

// OutputSignature serializes Outputs the same way.
func (s *StandardizedRule) OutputSignature() string { return signature(s.Outputs) }

// SuccessRate is successes/usage, or 0 for an unused rule.
func (s *StandardizedRule) SuccessRate() float64 {
	if s.Usage == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Usage)
}

// Action returns the first Action output, if any.
func (s *StandardizedRule) Action() (model.SymbolicElement, bool) {
	for _, e := range s.Outputs {
		if e.Type == model.Action {
			return e, true
		}
	}
	return model.SymbolicElement{}, false
}

func signatureName(t model.ElementType) string {
	if t == model.Characteristic {
		return "condition"
	}
	return t.String()
}

func signature(elems []model.SymbolicElement) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = signatureName(e.Type) + ":" + e.Content
	}
	return strings.Join(parts, "|")
}

// ParseSignature is the inverse of the signature encoding.
func ParseSignature(sig string) ([]model.SymbolicElement, error) {
	if sig == "" {
		return nil, nil
	}
	var out []model.SymbolicElement
	for _, part := range strings.Split(sig, "|") {
		typ, value, ok := strings.Cut(part, ":")
		if !ok || value == "" {
			return nil, fmt.Errorf("signature entry %q: %w", part, ErrConstraintViolation)
		}
		t, err := model.ParseElementType(typ)
		if err != nil {
			return nil, fmt.Errorf("signature entry %q: %w", part, ErrInvalidElementType)
		}
		out = append(out, model.NewElement(t, value, 0))
	}
	return out, nil
}

// CanConnectTo reports whether s's outputs can establish next's inputs. The
// score is the share of next's inputs matched by some output of s; the rules
// connect when it reaches ConnectThreshold.
func (s *StandardizedRule) CanConnectTo(next *StandardizedRule) (bool, float64) {
	outs, err := ParseSignature(s.OutputSignature())
	if err != nil {
		return false, 0
	}
	ins, err := ParseSignature(next.InputSignature())
	if err != nil || len(ins) == 0 {
		return false, 0
	}
	matched := 0
	for _, in := range ins {
		if slices.ContainsFunc(outs, func(out model.SymbolicElement) bool {
			return TypeCompatible(out.Type, in.Type) && ValueCompatible(out.Content, in.Content)
		}) {
			matched++
		}
	}
	score := float64(matched) / float64(len(ins))
	return score >= ConnectThreshold, score
}

// TypeCompatible reports whether an output of type out can establish an
// input of type in: a Result any contextual slot, an Action a condition, a
// Tool an object.
func TypeCompatible(out, in model.ElementType) bool {
	switch out {
	case model.Result:
		return in.Contextual()
	case model.Action:
		return in == model.Characteristic
	case model.Tool:
		return in == model.Object
	}
	return false
}

// ValueCompatible matches exact content, substrings either way, or membership
// in the same semantic group.
func ValueCompatible(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	for _, g := range semanticGroups {
		if slices.Contains(g, a) && slices.Contains(g, b) {
			return true
		}
	}
	return false
}
