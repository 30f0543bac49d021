package bloom

import (
	"github.com/nstehr/eocatr-core/combo"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

// MirrorTag marks elements substituted by mirror generation.
const MirrorTag = "mirror"

// Mirror synthesizes the opposite rule for each candidate whose semantic
// score reaches MirrorThreshold: every core element and the result are
// replaced by their opposites where the table has one. The result must be
// mirrorable and at least MirrorRatio of the core plus result must be.
// The mirrored semantic score is original×0.85 + ratio×0.15.
func (g *Generator) Mirror(cands []*rules.Candidate, st *Stats) []*rules.Candidate {
	var out []*rules.Candidate
	for _, c := range cands {
		if c.Semantic < g.cfg.MirrorThreshold || c.MirrorOf != "" {
			continue
		}
		m, ok := g.mirrorOf(c)
		if !ok {
			continue
		}
		rep := g.validator.Validate(m.Elements())
		if rep.Contradiction {
			st.Contradictions++
			continue
		}
		m.Logical = rep.Logical
		out = append(out, m)
	}
	st.Mirror += len(out)
	return out
}

func (g *Generator) mirrorOf(c *rules.Candidate) (*rules.Candidate, bool) {
	opp, ok := g.opposites.Opposite(c.Result.Content)
	if !ok {
		return nil, false
	}
	result := c.Result.WithContent(opp, MirrorTag)

	mirrored := 1
	core := make([]model.SymbolicElement, len(c.Core))
	for i, e := range c.Core {
		if o, ok := g.opposites.Opposite(e.Content); ok {
			core[i] = e.WithContent(o, MirrorTag)
			mirrored++
			continue
		}
		core[i] = e
	}
	ratio := float64(mirrored) / float64(len(c.Core)+1)
	if ratio < g.cfg.MirrorRatio {
		return nil, false
	}

	m := rules.NewCandidate(c.SourceID, c.Layer, core, c.Anchor, result, 0.85*c.Semantic+0.15*ratio, 0)
	m.MirrorOf = c.ID()
	types := make([]model.ElementType, 0, len(core)+2)
	for _, e := range m.Elements() {
		types = append(types, e.Type)
	}
	if !combo.IsValid(types) {
		return nil, false
	}
	return m, true
}
