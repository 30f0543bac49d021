package semantic

import (
	"math"
	"testing"

	"github.com/nstehr/eocatr-core/model"
)

func elems(pairs ...string) []model.SymbolicElement {
	var out []model.SymbolicElement
	for i := 0; i+1 < len(pairs); i += 2 {
		t, err := model.ParseElementType(pairs[i])
		if err != nil {
			panic(err)
		}
		out = append(out, model.NewElement(t, pairs[i+1], 0))
	}
	return out
}

func inUnit(v float64) bool { return v >= 0 && v <= 1 && !math.IsNaN(v) }

func TestValidateScoresInRange(t *testing.T) {
	v := New()
	inputs := [][]model.SymbolicElement{
		nil,
		elems("O", "tiger"),
		elems("O", "tiger", "A", "approach", "R", "injured"),
		elems("A", "approach", "A", "flee", "R", "safe"),
		elems("R", "injured", "A", "approach", "A", "approach", "O", "zzz"),
		elems("E", "forest", "O", "tiger", "C", "hungry", "A", "attack", "T", "spear", "R", "food_found"),
	}
	for _, in := range inputs {
		r := v.Validate(in)
		for name, s := range map[string]float64{
			"lexical": r.Lexical, "conceptual": r.Conceptual, "logical": r.Logical,
			"pragmatic": r.Pragmatic, "aggregate": r.Aggregate, "confidence": r.Confidence,
		} {
			if !inUnit(s) {
				t.Errorf("Validate(%v).%s = %v, out of [0,1]", in, name, s)
			}
		}
	}
}

func TestAggregateWeights(t *testing.T) {
	v := New()
	r := v.Validate(elems("O", "tiger", "A", "approach", "R", "injured"))
	want := 0.20*r.Lexical + 0.30*r.Conceptual + 0.25*r.Logical + 0.25*r.Pragmatic
	if math.Abs(r.Aggregate-want) > 1e-9 {
		t.Errorf("Aggregate = %v, want %v", r.Aggregate, want)
	}
	if r.Confidence > (r.Lexical+r.Conceptual+r.Logical+r.Pragmatic)/4+1e-9 {
		t.Errorf("Confidence %v exceeds the layer mean", r.Confidence)
	}
}

func TestLogicalContradiction(t *testing.T) {
	v := New()
	tests := []struct {
		name string
		in   []model.SymbolicElement
		want bool
	}{
		{"clean", elems("O", "tiger", "A", "approach", "R", "injured"), false},
		{"approach and flee", elems("O", "tiger", "A", "approach", "A", "flee", "R", "safe"), true},
		{"healthy vs injured", elems("C", "healthy", "A", "attack", "R", "injured"), true},
		{"no pairs", elems("A", "rest"), false},
	}
	for _, tc := range tests {
		if got := v.CheckLogicalContradiction(tc.in); got != tc.want {
			t.Errorf("%s: CheckLogicalContradiction = %v, want %v (logical %v)", tc.name, got, tc.want, v.Logical(tc.in))
		}
	}
}

func TestLogicalCapsAtContradiction(t *testing.T) {
	v := New()
	one := v.Logical(elems("A", "approach", "A", "flee", "R", "safe"))
	two := v.Logical(elems("A", "approach", "A", "flee", "C", "danger", "R", "safe"))
	if one > 0.3 {
		t.Errorf("one contradiction: logical = %v, want <= 0.3", one)
	}
	if two >= one {
		t.Errorf("two contradictions (%v) should score below one (%v)", two, one)
	}
}

func TestLogicalOrdering(t *testing.T) {
	v := New()
	ordered := v.Logical(elems("O", "tiger", "A", "approach", "R", "injured"))
	resultFirst := v.Logical(elems("R", "injured", "O", "tiger", "A", "approach"))
	if resultFirst >= ordered {
		t.Errorf("result-first ordering (%v) should score below canonical (%v)", resultFirst, ordered)
	}
	reversed := v.Logical(elems("A", "attack", "A", "approach", "R", "injured"))
	forward := v.Logical(elems("A", "approach", "A", "attack", "R", "injured"))
	if reversed >= forward {
		t.Errorf("reversed temporal order (%v) should score below forward (%v)", reversed, forward)
	}
}

func TestCausalStrength(t *testing.T) {
	tests := []struct {
		cause, effect string
		want          float64
	}{
		{"tiger", "injured", 0.8},
		{"approach", "attack", 0.7},
		{"unknown", "thing", 0.3},
		{"predator", "injured", 0.8 * 0.7}, // predator → danger → injured
	}
	for _, tc := range tests {
		if got := CausalStrength(tc.cause, tc.effect); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("CausalStrength(%s, %s) = %v, want %v", tc.cause, tc.effect, got, tc.want)
		}
	}
}

func TestDetectContext(t *testing.T) {
	tests := []struct {
		in   []model.SymbolicElement
		want string
	}{
		{elems("O", "tiger", "R", "injured"), "danger"},
		{elems("O", "berry", "A", "gather", "R", "food_found"), "resource"},
		{elems("E", "cave", "A", "rest"), "shelter"},
		{elems("O", "rock"), ""},
	}
	for _, tc := range tests {
		if got := DetectContext(tc.in); got != tc.want {
			t.Errorf("DetectContext(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFeasibilityPenalizesMissingPreconditions(t *testing.T) {
	v := New()
	with := v.Pragmatic(elems("O", "berry", "A", "gather", "R", "food_found"))
	without := v.Pragmatic(elems("C", "hungry", "A", "gather", "R", "food_found"))
	if without >= with {
		t.Errorf("gather without an object (%v) should score below with one (%v)", without, with)
	}
}

func TestLearnFromExperience(t *testing.T) {
	v := New()
	in := elems("O", "berry", "A", "gather", "R", "food_found")
	before := v.Validate(in)
	if got := v.SuccessRate("berry"); got != 0.5 {
		t.Fatalf("initial success rate = %v, want 0.5", got)
	}

	for range 5 {
		v.LearnFromExperience(in, true)
	}
	after := v.Validate(in)
	if after.Lexical <= before.Lexical {
		t.Errorf("lexical did not grow with success: %v -> %v", before.Lexical, after.Lexical)
	}
	if after.Pragmatic <= before.Pragmatic {
		t.Errorf("pragmatic did not grow with success: %v -> %v", before.Pragmatic, after.Pragmatic)
	}
	if got := v.Observations("berry"); got != 5 {
		t.Errorf("Observations = %d, want 5", got)
	}
	if got, want := v.SuccessRate("berry"), 6.0/7.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("SuccessRate = %v, want %v", got, want)
	}

	v.LearnFromExperience(in, false)
	if got := v.Observations("berry"); got != 6 {
		t.Errorf("Observations after failure = %d, want 6 (counters never decrease)", got)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	v := New()
	in := elems("O", "berry", "A", "gather", "R", "food_found")
	snap := v.Snapshot()
	v.LearnFromExperience(in, true)
	if snap.Observations("berry") != 0 {
		t.Error("snapshot observed a later write")
	}
	if v.Observations("berry") != 1 {
		t.Error("original lost its write")
	}
}

func TestIsPositiveOutcome(t *testing.T) {
	if IsPositiveOutcome(model.NewElement(model.Result, "injured", 0)) {
		t.Error("injured classified as positive")
	}
	if !IsPositiveOutcome(model.NewElement(model.Result, "safety_up", 0)) {
		t.Error("safety_up classified as negative")
	}
	if IsPositiveOutcome(model.NewElement(model.Result, "unheard_of", 0)) {
		t.Error("unknown outcome classified as positive")
	}
}
