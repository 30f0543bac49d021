package bridge

import (
	"context"
	"fmt"
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

func forestStart() model.GameState {
	s := model.NewGameState()
	s.Environment["forest"] = true
	s.Objects["tiger"] = true
	return s
}

func goalFor(conds map[string]any, constraints ...string) model.StructuredGoal {
	g := model.StructuredGoal{GoalType: "test", Target: model.NewGameState(), Constraints: constraints}
	for k, v := range conds {
		g.Target.Conditions[k] = v
	}
	return g
}

func escapeRules(t *testing.T) []*rules.StandardizedRule {
	return []*rules.StandardizedRule{
		std(t, "R1", 0.8, "safety_up", el(model.Environment, "forest"), el(model.Object, "tiger"), el(model.Action, "retreat")),
		std(t, "R2", 0.7, "resource_found", el(model.Characteristic, "safety_up"), el(model.Action, "search")),
		std(t, "noise", 0.9, "wet", el(model.Environment, "river"), el(model.Action, "swim")),
	}
}

func TestSearchFindsTwoStepChain(t *testing.T) {
	chain, ok := Search(context.Background(), forestStart(), goalFor(map[string]any{"resource_found": true}), escapeRules(t), DefaultConfig())
	if !ok {
		t.Fatal("no chain found")
	}
	if diff := cmp.Diff([]string{"R1", "R2"}, chain.IDs()); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}
	if want := (1 - 0.5*0.8) + (1 - 0.5*0.7); chain.Cost < want-1e-9 || chain.Cost > want+1e-9 {
		t.Errorf("Cost = %v, want %v", chain.Cost, want)
	}
	if chain.Final.Conditions["last_action"] != "search" {
		t.Errorf("final state = %v", chain.Final.Conditions)
	}
}

func TestSearchEmptyRules(t *testing.T) {
	if _, ok := Search(context.Background(), forestStart(), goalFor(map[string]any{"x": true}), nil, DefaultConfig()); ok {
		t.Error("found a chain with no rules")
	}
}

func TestSearchTerminatesOnCycles(t *testing.T) {
	start := forestStart()
	start.Conditions["tired"] = true
	loop := []*rules.StandardizedRule{
		std(t, "loop", 1, "tired", el(model.Characteristic, "tired"), el(model.Action, "rest")),
		std(t, "wander", 0.5, "lost", el(model.Environment, "forest"), el(model.Action, "explore")),
		std(t, "back", 0.5, "tired", el(model.Characteristic, "lost"), el(model.Action, "walk")),
	}
	if _, ok := Search(context.Background(), start, goalFor(map[string]any{"food_found": true}), loop, DefaultConfig()); ok {
		t.Error("found a chain to an unreachable goal")
	}
}

// ladder builds rules step0 → step1 → ... each requiring the previous result.
func ladder(t *testing.T, n int) []*rules.StandardizedRule {
	out := []*rules.StandardizedRule{std(t, "s0", 0.5, "step1", el(model.Environment, "forest"), el(model.Action, "climb"))}
	for i := 1; i < n; i++ {
		out = append(out, std(t, fmt.Sprintf("s%d", i), 0.5, fmt.Sprintf("step%d", i+1),
			el(model.Characteristic, fmt.Sprintf("step%d", i)), el(model.Action, "climb")))
	}
	return out
}

func TestSearchDepthBound(t *testing.T) {
	goal := goalFor(map[string]any{"step6": true})
	if _, ok := Search(context.Background(), forestStart(), goal, ladder(t, 6), Config{MaxDepth: 5}); ok {
		t.Error("found a six-rule chain under depth 5")
	}
	chain, ok := Search(context.Background(), forestStart(), goal, ladder(t, 6), Config{MaxDepth: 6})
	if !ok || len(chain.Rules) != 6 {
		t.Errorf("depth 6: ok=%v len=%d", ok, len(chain.Rules))
	}
}

func TestSearchPrefersConfidentRules(t *testing.T) {
	rs := []*rules.StandardizedRule{
		std(t, "weak", 0.1, "safe", el(model.Object, "tiger"), el(model.Action, "hide")),
		std(t, "strong", 0.9, "safe", el(model.Object, "tiger"), el(model.Action, "flee")),
	}
	chain, ok := Search(context.Background(), forestStart(), goalFor(map[string]any{"safe": true}), rs, DefaultConfig())
	if !ok || chain.IDs()[0] != "strong" {
		t.Errorf("chain = %v, %v; want strong", chain.IDs(), ok)
	}
}

func TestSearchConstraints(t *testing.T) {
	goal := map[string]any{"resource_found": true}
	if _, ok := Search(context.Background(), forestStart(), goalFor(goal, `LastAction() == "search"`), escapeRules(t), DefaultConfig()); !ok {
		t.Error("satisfiable constraint blocked the chain")
	}
	if _, ok := Search(context.Background(), forestStart(), goalFor(goal, `Has("injured")`), escapeRules(t), DefaultConfig()); ok {
		t.Error("unsatisfiable constraint was ignored")
	}
	if _, ok := Search(context.Background(), forestStart(), goalFor(goal, `(((`), escapeRules(t), DefaultConfig()); !ok {
		t.Error("malformed constraint should be ignored")
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := Search(ctx, forestStart(), goalFor(map[string]any{"resource_found": true}), escapeRules(t), DefaultConfig()); ok {
		t.Error("cancelled search returned a chain")
	}
}

func TestValueMatches(t *testing.T) {
	tests := []struct {
		want, have any
		ok         bool
	}{
		{true, true, true},
		{true, nil, false},
		{false, nil, true},
		{1.0, 1.05, true},
		{1.0, 1.2, false},
		{50, 50.09, true},
		{"cave", "dark_cave", true},
		{"cave", "forest", false},
		{"3", 3, true},
	}
	for _, tc := range tests {
		if got := valueMatches(tc.want, tc.have); got != tc.ok {
			t.Errorf("valueMatches(%v, %v) = %v, want %v", tc.want, tc.have, got, tc.ok)
		}
	}
}

func TestHeuristic(t *testing.T) {
	target := model.NewGameState()
	target.Conditions["safe"] = true
	target.Objects["spear"] = true
	target.Objects["torch"] = "lit"

	s := model.NewGameState()
	s.Objects["torch"] = "out"
	if got := heuristic(s, target); got != 2.0+1.5+0.5 {
		t.Errorf("heuristic = %v, want 4", got)
	}
	s.Conditions["safe"] = true
	s.Objects["spear"] = true
	s.Objects["torch"] = "lit"
	if got := heuristic(s, target); got != 0 {
		t.Errorf("heuristic of goal state = %v", got)
	}
}

func TestRuleCostFloor(t *testing.T) {
	r := std(t, "x", 1, "safe", el(model.Object, "tiger"), el(model.Action, "flee"))
	r.Usage = 20
	if got := ruleCost(r); got != minRuleCost {
		t.Errorf("ruleCost = %v, want %v", got, minRuleCost)
	}
}

func TestBuilderCache(t *testing.T) {
	b := NewBuilder(Config{})
	goal := goalFor(map[string]any{"resource_found": true})
	rs := escapeRules(t)

	first, ok := b.Build(context.Background(), forestStart(), goal, rs)
	if !ok || first.Cached {
		t.Fatalf("first build: ok=%v cached=%v", ok, first.Cached)
	}
	second, ok := b.Build(context.Background(), forestStart(), goal, rs)
	if !ok || !second.Cached {
		t.Fatalf("second build: ok=%v cached=%v", ok, second.Cached)
	}
	if diff := cmp.Diff(first.IDs(), second.IDs()); diff != "" {
		t.Errorf("cached chain differs (-first +second):\n%s", diff)
	}

	// R2 pruned: the cached chain is stale and must not be served.
	if _, ok := b.Build(context.Background(), forestStart(), goal, []*rules.StandardizedRule{rs[0], rs[2]}); ok {
		t.Error("served a chain without R2")
	}
	if b.Cache().Len() != 0 {
		t.Errorf("stale entry kept: %d entries", b.Cache().Len())
	}
	hits, misses := b.Cache().Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("hits=%d misses=%d, want 1/2", hits, misses)
	}
}

func TestCacheStoreKeepsFirst(t *testing.T) {
	c := NewCache(2)
	c.Store("k", []string{"a"})
	c.Store("k", []string{"b"})
	got, ok := c.Lookup("k", map[string]*rules.StandardizedRule{"a": {ID: "a"}, "b": {ID: "b"}})
	if !ok || got.IDs()[0] != "a" {
		t.Errorf("Lookup = %v, %v", got.IDs(), ok)
	}
	c.Store("k2", []string{"a"})
	c.Store("k3", []string{"a"})
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2 after eviction", c.Len())
	}
}
