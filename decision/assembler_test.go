package decision

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

func el(t model.ElementType, c string) model.SymbolicElement { return model.NewElement(t, c, 0) }

func static(id string, conf float64, result string, conds ...model.SymbolicElement) *rules.Static {
	return &rules.Static{RuleID: id, Conditions: conds, Outcome: el(model.Result, result), Conf: conf}
}

func goalOf(goalType string, conds ...string) model.StructuredGoal {
	g := model.StructuredGoal{GoalType: goalType, Target: model.NewGameState()}
	for _, c := range conds {
		g.Target.Conditions[c] = true
	}
	return g
}

func TestMakeDecision(t *testing.T) {
	forest := model.NewGameState()
	forest.Environment["forest"] = true
	forest.Objects["tiger"] = true

	tigerOnly := model.NewGameState()
	tigerOnly.Objects["tiger"] = true

	tests := []struct {
		name      string
		state     model.GameState
		goal      model.StructuredGoal
		available []rules.Rule
		want      Result
	}{
		{
			name:  "no rules",
			state: forest,
			goal:  goalOf("survive", "safe"),
			want:  Result{Method: MethodNone, RuleChain: []string{}, Actions: []string{}},
		},
		{
			name:  "direct bridge",
			state: forest,
			goal:  goalOf("forage", "resource_found"),
			available: []rules.Rule{
				static("R1", 0.8, "safety_up", el(model.Environment, "forest"), el(model.Object, "tiger"), el(model.Action, "retreat")),
				static("R2", 0.7, "resource_found", el(model.Characteristic, "safety_up"), el(model.Action, "search"), el(model.Tool, "basket")),
			},
			want: Result{
				Success:    true,
				Method:     MethodBridge,
				RuleChain:  []string{"R1", "R2"},
				Actions:    []string{"retreat", "search", "use:basket"},
				Confidence: math.Sqrt(0.8 * 0.7),
			},
		},
		{
			name:  "pattern when no chain applies",
			state: model.NewGameState(),
			goal:  goalOf("forage", "food_found"),
			available: []rules.Rule{
				static("gather", 0.8, "berry", el(model.Environment, "forest"), el(model.Action, "gather")),
				static("eat", 0.7, "food_found", el(model.Object, "berry"), el(model.Action, "eat")),
			},
			want: Result{
				Success:    true,
				Method:     MethodPattern,
				RuleChain:  []string{"gather", "eat"},
				Actions:    []string{"gather", "eat"},
				Confidence: math.Sqrt(0.8*0.7) + 0.1*0.55,
				Pattern:    "gather_then_use",
			},
		},
		{
			name:  "single rule fallback",
			state: tigerOnly,
			goal:  goalOf("forage", "food_found"),
			available: []rules.Rule{
				static("hide", 0.4, "hidden", el(model.Environment, "plain"), el(model.Object, "tiger"), el(model.Action, "hide")),
			},
			want: Result{
				Success:    true,
				Method:     MethodSimple,
				RuleChain:  []string{"hide"},
				Actions:    []string{"hide"},
				Confidence: 0.4,
			},
		},
		{
			name:  "malformed rules are skipped",
			state: tigerOnly,
			goal:  goalOf("survive", "safe"),
			available: []rules.Rule{
				static("broken", 0.9, "", el(model.Object, "tiger"), el(model.Action, "flee")),
				static("flee", 0.9, "safe", el(model.Object, "tiger"), el(model.Action, "flee")),
			},
			want: Result{
				Success:    true,
				Method:     MethodBridge,
				RuleChain:  []string{"flee"},
				Actions:    []string{"flee"},
				Confidence: 0.9,
			},
		},
		{
			name:  "nothing applies",
			state: model.NewGameState(),
			goal:  goalOf("survive", "safe"),
			available: []rules.Rule{
				static("swim", 0.9, "wet", el(model.Environment, "river"), el(model.Object, "log"), el(model.Action, "swim")),
			},
			want: Result{Method: MethodNone, RuleChain: []string{}, Actions: []string{}},
		},
	}

	approx := cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAssembler(nil, nil)
			got := a.MakeDecision(context.Background(), tc.state, tc.goal, tc.available)
			if diff := cmp.Diff(tc.want, got, approx); diff != "" {
				t.Errorf("MakeDecision mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMakeDecisionUsesCache(t *testing.T) {
	state := model.NewGameState()
	state.Objects["tiger"] = true
	available := []rules.Rule{static("flee", 0.9, "safe", el(model.Object, "tiger"), el(model.Action, "flee"))}

	a := NewAssembler(nil, nil)
	a.MakeDecision(context.Background(), state, goalOf("survive", "safe"), available)
	a.MakeDecision(context.Background(), state, goalOf("survive", "safe"), available)
	if hits, _ := a.Builder().Cache().Stats(); hits != 1 {
		t.Errorf("cache hits = %d, want 1", hits)
	}
}

func TestGeometricMean(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{nil, 0},
		{[]float64{0.5}, 0.5},
		{[]float64{0.25, 1}, 0.5},
		{[]float64{0.9, 0}, 0},
		{[]float64{1, 1, 1}, 1},
	}
	for _, tc := range tests {
		if got := GeometricMean(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("GeometricMean(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
