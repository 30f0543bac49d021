package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/nstehr/eocatr-core/model"
)

func retreatRule() *Static {
	return &Static{
		RuleID:     "R1",
		Conditions: []model.SymbolicElement{el(model.Environment, "forest"), el(model.Object, "tiger"), el(model.Action, "retreat")},
		Outcome:    el(model.Result, "safety_up"),
		Conf:       0.8,
	}
}

func searchRule() *Static {
	return &Static{
		RuleID:     "R2",
		Conditions: []model.SymbolicElement{el(model.Characteristic, "safety_up"), el(model.Object, "plant"), el(model.Action, "search")},
		Outcome:    el(model.Result, "resource_found"),
		Conf:       0.7,
	}
}

func mustStandardize(t *testing.T, r Rule) *StandardizedRule {
	t.Helper()
	s, err := Standardize(r)
	if err != nil {
		t.Fatalf("Standardize(%s): %v", r.ID(), err)
	}
	return s
}

func TestSignatures(t *testing.T) {
	s := mustStandardize(t, searchRule())
	if got, want := s.InputSignature(), "object:plant|condition:safety_up"; got != want {
		t.Errorf("InputSignature() = %q, want %q", got, want)
	}
	if got, want := s.OutputSignature(), "action:search|result:resource_found"; got != want {
		t.Errorf("OutputSignature() = %q, want %q", got, want)
	}
	// Pure: repeated calls and repeated projections agree byte for byte.
	again := mustStandardize(t, searchRule())
	if s.InputSignature() != again.InputSignature() || s.OutputSignature() != again.OutputSignature() {
		t.Error("signatures differ across calls")
	}

	parsed, err := ParseSignature(s.InputSignature())
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if len(parsed) != 2 || parsed[1].Type != model.Characteristic {
		t.Errorf("ParseSignature = %v", parsed)
	}
}

func TestCanConnectTo(t *testing.T) {
	r1 := mustStandardize(t, retreatRule())
	r2 := mustStandardize(t, searchRule())

	ok, score := r1.CanConnectTo(r2)
	if !ok || score != 0.5 {
		t.Errorf("R1.CanConnectTo(R2) = %v, %v; want true, 0.5", ok, score)
	}
	if ok, score := r2.CanConnectTo(r1); ok {
		t.Errorf("R2.CanConnectTo(R1) = %v, %v; want false", ok, score)
	}
}

func TestCanConnectToSemanticGroup(t *testing.T) {
	hunt := mustStandardize(t, &Static{
		RuleID:     "hunt",
		Conditions: []model.SymbolicElement{el(model.Object, "bear"), el(model.Tool, "spear")},
		Outcome:    el(model.Result, "injured"),
	})
	heal := mustStandardize(t, &Static{
		RuleID:     "heal",
		Conditions: []model.SymbolicElement{el(model.Characteristic, "hurt"), el(model.Action, "rest")},
		Outcome:    el(model.Result, "healthy"),
	})
	ok, score := hunt.CanConnectTo(heal)
	if !ok || score != 1 {
		t.Errorf("hunt.CanConnectTo(heal) = %v, %v; want true, 1", ok, score)
	}
}

func TestTypeCompatible(t *testing.T) {
	E, O, C, A, T, R := model.Environment, model.Object, model.Characteristic, model.Action, model.Tool, model.Result
	tests := []struct {
		out, in model.ElementType
		want    bool
	}{
		{R, E, true}, {R, O, true}, {R, C, true},
		{A, C, true}, {A, O, false},
		{T, O, true}, {T, C, false},
		{E, E, false},
	}
	for _, tc := range tests {
		if got := TypeCompatible(tc.out, tc.in); got != tc.want {
			t.Errorf("TypeCompatible(%s, %s) = %v, want %v", tc.out, tc.in, got, tc.want)
		}
	}
}

func TestStandardizeFailsFast(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want error
	}{
		{"no result", &Static{RuleID: "a", Conditions: []model.SymbolicElement{el(model.Object, "x"), el(model.Action, "y")}}, ErrMissingResult},
		{"result typed wrong", &Static{RuleID: "b",
			Conditions: []model.SymbolicElement{el(model.Object, "x"), el(model.Action, "y")},
			Outcome:    el(model.Action, "z")}, ErrInvalidElementType},
		{"bad type", &Static{RuleID: "c",
			Conditions: []model.SymbolicElement{{Type: 42, Content: "x"}, el(model.Action, "y")},
			Outcome:    el(model.Result, "z")}, ErrInvalidElementType},
		{"two results", &Static{RuleID: "d",
			Conditions: []model.SymbolicElement{el(model.Result, "w"), el(model.Object, "x"), el(model.Action, "y")},
			Outcome:    el(model.Result, "z")}, ErrConstraintViolation},
		{"no controllable", &Static{RuleID: "e",
			Conditions: []model.SymbolicElement{el(model.Object, "x")},
			Outcome:    el(model.Result, "z")}, ErrConstraintViolation},
		{"nil", nil, ErrConstraintViolation},
	}
	for _, tc := range tests {
		_, err := Standardize(tc.rule)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestStandardizeAll(t *testing.T) {
	good, errs := StandardizeAll([]Rule{retreatRule(), &Static{RuleID: "bad"}, searchRule()})
	if len(good) != 2 || len(errs) != 1 {
		t.Fatalf("StandardizeAll = %d ok, %d errors", len(good), len(errs))
	}
	if !strings.Contains(errs[0].Error(), "bad") {
		t.Errorf("error does not name the rule: %v", errs[0])
	}
}

func TestLoadStatic(t *testing.T) {
	src := `
- id: flee-tiger
  conditions:
    - {type: object, content: Tiger}
    - {type: A, content: flee}
  result: {content: safe}
  confidence: 0.6
`
	got, err := LoadStatic(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadStatic: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rules", len(got))
	}
	s := mustStandardize(t, got[0])
	if s.InputSignature() != "object:tiger" || s.OutputSignature() != "action:flee|result:safe" {
		t.Errorf("signatures = %q / %q", s.InputSignature(), s.OutputSignature())
	}
}
