package rules

import (
	"fmt"
	"io"

	"github.com/nstehr/eocatr-core/model"
	"gopkg.in/yaml.v3"
)

// Static is a hand-authored rule, e.g. one loaded from a rule file. It
// satisfies Rule without going through blooming.
type Static struct {
	RuleID     string                  `json:"id" yaml:"id"`
	Conditions []model.SymbolicElement `json:"conditions" yaml:"conditions"`
	Outcome    model.SymbolicElement   `json:"result" yaml:"result"`
	Conf       float64                 `json:"confidence" yaml:"confidence"`
	Kind       string                  `json:"type,omitempty" yaml:"type,omitempty"`
	Used       int                     `json:"usage,omitempty" yaml:"usage,omitempty"`
	Succeeded  int                     `json:"successes,omitempty" yaml:"successes,omitempty"`
}

func (s *Static) ID() string                        { return s.RuleID }
func (s *Static) Pattern() []model.SymbolicElement  { return s.Conditions }
func (s *Static) Prediction() model.SymbolicElement { return s.Outcome }
func (s *Static) Confidence() float64               { return clamp01(s.Conf) }
func (s *Static) Usage() int                        { return s.Used }
func (s *Static) Successes() int                    { return s.Succeeded }

func (s *Static) RuleType() string {
	if s.Kind == "" {
		return "static"
	}
	return s.Kind
}

// LoadStatic decodes a YAML or JSON list of hand-authored rules. The result
// slot is always typed Result.
func LoadStatic(r io.Reader) ([]*Static, error) {
	var out []*Static
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	for i, s := range out {
		if s.RuleID == "" {
			s.RuleID = fmt.Sprintf("static-%d", i+1)
		}
		for j, e := range s.Conditions {
			s.Conditions[j] = model.NewElement(e.Type, e.Content, e.AbstractionLevel, e.SemanticTags...)
		}
		s.Outcome = model.NewElement(model.Result, s.Outcome.Content, s.Outcome.AbstractionLevel, s.Outcome.SemanticTags...)
	}
	return out, nil
}
