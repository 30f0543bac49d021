package combo

import "github.com/nstehr/eocatr-core/model"

// Binding is a table combination filled with concrete content from one
// experience.
type Binding struct {
	Combination ValidCombination
	Conditions  []model.SymbolicElement // E-O-C-A-T order
	Result      model.SymbolicElement
}

// Elements returns the conditions followed by the result.
func (b Binding) Elements() []model.SymbolicElement {
	out := make([]model.SymbolicElement, 0, len(b.Conditions)+1)
	out = append(out, b.Conditions...)
	return append(out, b.Result)
}

// Generator binds cached combinations to experiences. The per-call cost is
// linear in the table size.
type Generator struct {
	combos []ValidCombination
}

func NewGenerator() *Generator {
	return &Generator{combos: Table()}
}

func (g *Generator) Combinations() []ValidCombination { return g.combos }

// GenerateFromExperience returns one binding per combination whose slots are
// all filled in exp and whose complexity does not exceed maxComplexity
// (values <= 0 mean no limit). Experiences without a Result yield nothing.
func (g *Generator) GenerateFromExperience(exp *model.Experience, maxComplexity int) []Binding {
	if exp == nil || exp.Result == nil {
		return nil
	}
	var out []Binding
	for _, c := range g.combos {
		if maxComplexity > 0 && c.Complexity > maxComplexity {
			continue
		}
		conds := make([]model.SymbolicElement, 0, c.Complexity)
		for _, t := range c.Conditions() {
			e := exp.Get(t)
			if e == nil {
				break
			}
			conds = append(conds, *e)
		}
		if len(conds) != c.Complexity {
			continue
		}
		out = append(out, Binding{Combination: c, Conditions: conds, Result: *exp.Result})
	}
	return out
}
