package pattern

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

func el(t model.ElementType, c string) model.SymbolicElement { return model.NewElement(t, c, 0) }

func std(t *testing.T, id string, conf float64, result string, conds ...model.SymbolicElement) *rules.StandardizedRule {
	t.Helper()
	s, err := rules.Standardize(&rules.Static{RuleID: id, Conditions: conds, Outcome: el(model.Result, result), Conf: conf})
	if err != nil {
		t.Fatalf("Standardize(%s): %v", id, err)
	}
	return s
}

func goal(goalType string, conds ...string) model.StructuredGoal {
	g := model.StructuredGoal{GoalType: goalType, Target: model.NewGameState()}
	for _, c := range conds {
		g.Target.Conditions[c] = true
	}
	return g
}

func names(ms []Match) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Template.Name)
	}
	return out
}

func TestFindApplicableSequential(t *testing.T) {
	gather := std(t, "gather", 0.8, "berry", el(model.Environment, "forest"), el(model.Action, "gather"))
	eat := std(t, "eat", 0.7, "food_found", el(model.Object, "berry"), el(model.Action, "eat"))

	got := NewLibrary().FindApplicable(goal("forage", "food_found"), []*rules.StandardizedRule{gather, eat})
	if diff := cmp.Diff([]string{"gather_then_use", "parallel_pursuit"}, names(got)); diff != "" {
		t.Fatalf("templates mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"gather", "eat"}, got[0].IDs()); diff != "" {
		t.Errorf("slot assignment mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(got[0].Relevance-0.55) > 1e-9 {
		t.Errorf("Relevance = %v, want 0.55", got[0].Relevance)
	}
}

func TestFindApplicableRejectsBrokenConnectivity(t *testing.T) {
	gather := std(t, "gather", 0.8, "berry", el(model.Environment, "forest"), el(model.Action, "gather"))
	eat := std(t, "eat", 0.7, "food_found", el(model.Object, "meat"), el(model.Action, "eat"))

	got := NewLibrary().FindApplicable(goal("forage", "food_found"), []*rules.StandardizedRule{gather, eat})
	if diff := cmp.Diff([]string{"parallel_pursuit"}, names(got)); diff != "" {
		t.Errorf("templates mismatch (-want +got):\n%s", diff)
	}
}

func TestFindApplicableFallback(t *testing.T) {
	attack := std(t, "attack", 0.6, "safe", el(model.Object, "tiger"), el(model.Action, "attack"))
	flee := std(t, "flee", 0.9, "safety_up", el(model.Object, "tiger"), el(model.Action, "flee"))

	got := NewLibrary().FindApplicable(goal("", "safe"), []*rules.StandardizedRule{attack, flee})
	if len(got) == 0 || got[0].Template.Kind != Fallback {
		t.Fatalf("best match = %v, want a fallback template", names(got))
	}
	if diff := cmp.Diff([]string{"attack", "flee"}, got[0].IDs()); diff != "" {
		t.Errorf("fallback slots mismatch (-want +got):\n%s", diff)
	}
}

func TestFindApplicableLoop(t *testing.T) {
	walk := std(t, "walk", 0.5, "tired", el(model.Characteristic, "tired"), el(model.Action, "walk"))

	got := NewLibrary().FindApplicable(goal("travel"), []*rules.StandardizedRule{walk})
	if diff := cmp.Diff([]string{"repeat_until"}, names(got)); diff != "" {
		t.Errorf("templates mismatch (-want +got):\n%s", diff)
	}
}

func TestFindApplicableEmpty(t *testing.T) {
	if got := NewLibrary().FindApplicable(goal("x", "y"), nil); got != nil {
		t.Errorf("FindApplicable(nil) = %v", names(got))
	}
}

func TestFindApplicableCustomTemplate(t *testing.T) {
	lib := NewLibrary(Template{
		Name:  "bad_edge",
		Kind:  Sequential,
		Slots: []Slot{{Name: "only", Keywords: []string{"eat"}}},
		Edges: []Edge{{From: "only", To: "missing"}},
	})
	eat := std(t, "eat", 0.7, "food_found", el(model.Object, "berry"), el(model.Action, "eat"))
	if got := lib.FindApplicable(goal("forage"), []*rules.StandardizedRule{eat}); len(got) != 0 {
		t.Errorf("template with an unknown slot matched: %v", names(got))
	}
	if n := len(lib.Templates()); n != 1 {
		t.Errorf("Templates() = %d, want 1", n)
	}
}

func TestSlotScore(t *testing.T) {
	eat := std(t, "eat", 0.5, "food_found", el(model.Object, "berry"), el(model.Action, "eat"))
	eat.Usage, eat.Successes = 4, 2

	tests := []struct {
		name  string
		slot  Slot
		terms []string
		want  float64
	}{
		{"keyword and goal", Slot{Keywords: []string{"eat"}}, []string{"food_found"}, 0.3 + 0.4 + 0.1 + 0.05},
		{"goal only", Slot{Keywords: []string{"flee"}}, []string{"food_found", "shelter"}, 0.2 + 0.1 + 0.05},
		{"no goal terms", Slot{Keywords: []string{"berry"}}, nil, 0.3 + 0.1 + 0.05},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SlotScore(tc.slot, tc.terms, eat); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("SlotScore = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDefaultTemplatesCoverKinds(t *testing.T) {
	seen := map[Kind]bool{}
	for _, tpl := range DefaultTemplates() {
		seen[tpl.Kind] = true
		for _, e := range tpl.Edges {
			if tpl.slotIndex(e.From) < 0 || tpl.slotIndex(e.To) < 0 {
				t.Errorf("%s: edge %s->%s names an unknown slot", tpl.Name, e.From, e.To)
			}
		}
	}
	for _, k := range []Kind{Sequential, Parallel, Conditional, Loop, Fallback} {
		if !seen[k] {
			t.Errorf("no default template of kind %s", k)
		}
	}
}
