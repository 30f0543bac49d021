package model

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// StructuredGoal is supplied with every decision request.
type StructuredGoal struct {
	GoalType    string    `json:"goal_type" yaml:"goal_type"`
	Target      GameState `json:"target" yaml:"target"`
	Priority    float64   `json:"priority" yaml:"priority"`
	Urgency     float64   `json:"urgency" yaml:"urgency"`
	Constraints []string  `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// Key is a canonical encoding used for caching search results.
func (g StructuredGoal) Key() string {
	return g.GoalType + "|" + g.Target.Key() + "|" + strings.Join(g.Constraints, "&&")
}

// Terms returns every target key and string value, used for relevance scoring.
func (g StructuredGoal) Terms() []string {
	var out []string
	for _, m := range []map[string]any{g.Target.Environment, g.Target.Objects, g.Target.Conditions} {
		for k, v := range m {
			out = append(out, strings.ToLower(k))
			if s, ok := v.(string); ok && s != "" {
				out = append(out, strings.ToLower(s))
			}
		}
	}
	if g.GoalType != "" {
		out = append(out, strings.ToLower(g.GoalType))
	}
	return out
}

// DecisionInput is the on-disk form of a decision request.
type DecisionInput struct {
	State GameState      `json:"state" yaml:"state"`
	Goal  StructuredGoal `json:"goal" yaml:"goal"`
}

// LoadDecisionInput decodes a YAML or JSON decision request.
func LoadDecisionInput(r io.Reader) (DecisionInput, error) {
	var in DecisionInput
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		return DecisionInput{}, fmt.Errorf("decode decision input: %w", err)
	}
	in.State = in.State.Clone()
	in.Goal.Target = in.Goal.Target.Clone()
	return in, nil
}
