package rules

import (
	"slices"
	"strings"
	"time"

	"github.com/nstehr/eocatr-core/model"
)

// RuleView wraps a repository rule and exposes fields and helper methods
// callable from query expressions, e.g.
//
//	Confidence > 0.5 && Uses("spear") && Predicts("food_found")
type RuleView struct {
	ID          string
	Type        string
	Layer       int
	Confidence  float64
	Semantic    float64
	Score       float64
	SuccessRate float64
	Support     int
	Rejection   int
	Usage       int
	AgeDays     float64
	Validated   bool
	Mirror      bool

	pattern    []model.SymbolicElement
	prediction model.SymbolicElement
}

func newRuleView(c *Candidate, now time.Time) RuleView {
	return RuleView{
		ID:          c.ID(),
		Type:        c.RuleType(),
		Layer:       c.Layer,
		Confidence:  c.Confidence(),
		Semantic:    c.Semantic,
		Score:       c.Score(),
		SuccessRate: c.SuccessRate(),
		Support:     c.Support(),
		Rejection:   c.Rejection(),
		Usage:       c.Usage(),
		AgeDays:     c.Age(now).Hours() / 24,
		Validated:   c.Validated(),
		Mirror:      c.MirrorOf != "",
		pattern:     c.Pattern(),
		prediction:  c.Result,
	}
}

// Has reports whether any pattern element carries content.
func (v RuleView) Has(content string) bool {
	return slices.ContainsFunc(v.pattern, func(e model.SymbolicElement) bool {
		return strings.EqualFold(e.Content, content)
	})
}

// HasType reports whether the pattern has an element of the named slot
// ("object", "tool", "O", ...).
func (v RuleView) HasType(slot string) bool {
	t, err := model.ParseElementType(slot)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(v.pattern, func(e model.SymbolicElement) bool { return e.Type == t })
}

func (v RuleView) slotIs(t model.ElementType, content string) bool {
	return slices.ContainsFunc(v.pattern, func(e model.SymbolicElement) bool {
		return e.Type == t && strings.EqualFold(e.Content, content)
	})
}

func (v RuleView) InEnvironment(content string) bool { return v.slotIs(model.Environment, content) }
func (v RuleView) Involves(content string) bool      { return v.slotIs(model.Object, content) }
func (v RuleView) When(content string) bool          { return v.slotIs(model.Characteristic, content) }
func (v RuleView) Does(content string) bool          { return v.slotIs(model.Action, content) }
func (v RuleView) Uses(content string) bool          { return v.slotIs(model.Tool, content) }

func (v RuleView) Predicts(content string) bool {
	return strings.EqualFold(v.prediction.Content, content)
}

// Size is the number of pattern elements.
func (v RuleView) Size() int { return len(v.pattern) }
