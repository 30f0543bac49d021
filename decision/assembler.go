// Package decision turns a state, a goal and the available rules into an
// action plan.
package decision

import (
	"context"
	"log/slog"
	"math"

	"github.com/nstehr/eocatr-core/bridge"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/pattern"
	"github.com/nstehr/eocatr-core/rules"
)

// Method records which strategy produced a decision.
type Method string

const (
	MethodBridge  Method = "direct_bridge"
	MethodPattern Method = "pattern_matching"
	MethodSimple  Method = "simple_matching"
	MethodNone    Method = "none"
)

const (
	// SimpleMatchThreshold is the minimum share of a rule's inputs that must
	// hold for the single-rule fallback.
	SimpleMatchThreshold = 0.5
	relevanceBonus       = 0.1
	toolActionPrefix     = "use:"
)

// Result is always returned, also on failure (Success=false, Method=none).
type Result struct {
	Success    bool     `json:"success" yaml:"success"`
	Method     Method   `json:"method" yaml:"method"`
	RuleChain  []string `json:"rule_chain" yaml:"rule_chain"`
	Actions    []string `json:"actions" yaml:"actions"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Pattern    string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

func failure() Result {
	return Result{Method: MethodNone, RuleChain: []string{}, Actions: []string{}}
}

// Assembler tries, in order, a direct chain search, the best applicable
// pattern template and a single matching rule.
type Assembler struct {
	builder *bridge.Builder
	library *pattern.Library
}

func NewAssembler(b *bridge.Builder, lib *pattern.Library) *Assembler {
	if b == nil {
		b = bridge.NewBuilder(bridge.DefaultConfig())
	}
	if lib == nil {
		lib = pattern.NewLibrary()
	}
	return &Assembler{builder: b, library: lib}
}

func (a *Assembler) Builder() *bridge.Builder { return a.builder }

// MakeDecision standardizes available (malformed rules are skipped with a
// warning) and picks a plan for goal from state.
func (a *Assembler) MakeDecision(ctx context.Context, state model.GameState, goal model.StructuredGoal, available []rules.Rule) Result {
	std := make([]*rules.StandardizedRule, 0, len(available))
	for _, r := range available {
		s, err := rules.Standardize(r)
		if err != nil {
			slog.Warn("skipping malformed rule", "error", err)
			continue
		}
		std = append(std, s)
	}
	return a.Decide(ctx, state, goal, std)
}

// Decide is MakeDecision over rules that are already standardized.
func (a *Assembler) Decide(ctx context.Context, state model.GameState, goal model.StructuredGoal, available []*rules.StandardizedRule) Result {
	if len(available) == 0 {
		return failure()
	}

	if chain, ok := a.builder.Build(ctx, state, goal, available); ok {
		res := fromRules(MethodBridge, chain.Rules)
		slog.Info("decision", "method", res.Method, "rules", res.RuleChain, "cached", chain.Cached, "confidence", res.Confidence)
		return res
	}

	if matches := a.library.FindApplicable(goal, available); len(matches) > 0 {
		best := matches[0]
		res := fromRules(MethodPattern, best.Rules)
		res.Confidence = min(res.Confidence+relevanceBonus*best.Relevance, 1)
		res.Pattern = best.Template.Name
		slog.Info("decision", "method", res.Method, "pattern", res.Pattern, "rules", res.RuleChain, "confidence", res.Confidence)
		return res
	}

	if r, ok := simpleMatch(state, available); ok {
		res := fromRules(MethodSimple, []*rules.StandardizedRule{r})
		slog.Info("decision", "method", res.Method, "rules", res.RuleChain, "confidence", res.Confidence)
		return res
	}

	slog.Debug("no decision", "goal", goal.GoalType, "rules", len(available))
	return failure()
}

// simpleMatch returns the rule whose inputs best match state, preferring
// higher confidence and then lower id on ties.
func simpleMatch(state model.GameState, available []*rules.StandardizedRule) (*rules.StandardizedRule, bool) {
	var best *rules.StandardizedRule
	bestRatio := 0.0
	for _, r := range available {
		ratio := bridge.InputMatch(state, r)
		if ratio < SimpleMatchThreshold {
			continue
		}
		switch {
		case best == nil, ratio > bestRatio:
		case ratio == bestRatio && r.Confidence > best.Confidence:
		case ratio == bestRatio && r.Confidence == best.Confidence && r.ID < best.ID:
		default:
			continue
		}
		best, bestRatio = r, ratio
	}
	return best, best != nil
}

func fromRules(m Method, rs []*rules.StandardizedRule) Result {
	res := Result{Success: true, Method: m, RuleChain: make([]string, 0, len(rs)), Actions: Actions(rs)}
	confs := make([]float64, 0, len(rs))
	for _, r := range rs {
		res.RuleChain = append(res.RuleChain, r.ID)
		confs = append(confs, r.Confidence)
	}
	res.Confidence = GeometricMean(confs)
	return res
}

// Actions lists every action output of rs in order, with tools written as
// "use:<tool>".
func Actions(rs []*rules.StandardizedRule) []string {
	out := []string{}
	for _, r := range rs {
		for _, e := range r.Outputs {
			switch e.Type {
			case model.Action:
				out = append(out, e.Content)
			case model.Tool:
				out = append(out, toolActionPrefix+e.Content)
			}
		}
	}
	return out
}

// GeometricMean of values in [0,1]; 0 for an empty list or any zero value.
func GeometricMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		if v <= 0 {
			return 0
		}
		sum += math.Log(v)
	}
	return min(math.Exp(sum/float64(len(values))), 1)
}
