package bloom

import (
	"cmp"
	"math"
	"slices"

	"github.com/nstehr/eocatr-core/combo"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
	"github.com/nstehr/eocatr-core/semantic"
)

// Layer1 emits one candidate per condition element. A single element cannot
// hold both a controllable and a contextual factor, so each candidate is
// anchored on the highest-quality element of the other class; elements with
// no such partner are skipped.
func (g *Generator) Layer1(exp *model.Experience, st *Stats) []*rules.Candidate {
	if !exp.HasResult() {
		return nil
	}
	conds := exp.Conditions()
	result := *exp.Result

	qualities := make([]float64, len(conds))
	for i, e := range conds {
		qualities[i] = Quality(e)
	}
	_, std := meanStd(qualities)
	threshold := clamp(0.2+0.03*float64(len(conds))+0.5*std*std, 0.1, 0.7)

	var out []*rules.Candidate
	for i, e := range conds {
		anchor, ok := strongestComplement(e, conds, qualities)
		if !ok {
			continue
		}
		c := rules.NewCandidate(exp.ID, 1, []model.SymbolicElement{e}, &anchor, result, 0, 0)
		rep := g.validator.Validate(c.Elements())
		if rep.Contradiction {
			st.Contradictions++
			continue
		}
		if qualities[i]*diversity(e, conds)*rep.Aggregate < threshold {
			st.BelowThreshold++
			continue
		}
		out = append(out, withScores(c, rep))
	}
	st.Layer1 += len(out)
	return out
}

func strongestComplement(e model.SymbolicElement, conds []model.SymbolicElement, qualities []float64) (model.SymbolicElement, bool) {
	best, bestQ := -1, -1.0
	for i, c := range conds {
		if c.Type.Controllable() == e.Type.Controllable() {
			continue
		}
		if qualities[i] > bestQ {
			best, bestQ = i, qualities[i]
		}
	}
	if best < 0 {
		return model.SymbolicElement{}, false
	}
	return conds[best], true
}

func withScores(c *rules.Candidate, rep semantic.Report) *rules.Candidate {
	c.Semantic = rep.Aggregate
	c.Logical = rep.Logical
	c.SetConfidence(0.3 * rep.Aggregate)
	return c
}

type scored struct {
	cand *rules.Candidate
	rep  semantic.Report
	rank float64
}

// Layer2 scores every constraint-satisfying pair of condition elements,
// filters them against a threshold derived from the batch, ranks the rest and
// keeps a spread-dependent number of them. PairsTried counts all C(n,2)
// pairs, including those the combination constraints reject.
func (g *Generator) Layer2(exp *model.Experience, st *Stats) []*rules.Candidate {
	n := len(exp.Conditions())
	st.PairsTried += n * (n - 1) / 2
	bindings := g.bindings(exp, 2)
	ranked := g.rank(exp, bindings, 2, st)
	if len(ranked) == 0 {
		return nil
	}

	spread := ranked[0].rank - ranked[len(ranked)-1].rank
	span := float64(g.cfg.MaxPairs - g.cfg.MinPairs)
	limit := g.cfg.MaxPairs - int(math.Round(span*math.Min(spread/0.5, 1)))

	out := g.dedup(ranked, limit, st)
	st.Layer2 += len(out)
	return out
}

// Layer3 applies the same filters to triples and keeps the best few.
func (g *Generator) Layer3(exp *model.Experience, st *Stats) []*rules.Candidate {
	ranked := g.rank(exp, g.bindings(exp, 3), 3, st)
	out := g.dedup(ranked, g.cfg.MaxTriples, st)
	st.Layer3 += len(out)
	return out
}

func (g *Generator) bindings(exp *model.Experience, complexity int) []combo.Binding {
	var out []combo.Binding
	for _, b := range g.combos.GenerateFromExperience(exp, complexity) {
		if b.Combination.Complexity == complexity {
			out = append(out, b)
		}
	}
	return out
}

// rank validates each binding, drops contradictions and anything under
// clamp(mean-std, 0.2, 0.6) of the batch's aggregate scores, and sorts the
// remainder by rank score.
func (g *Generator) rank(exp *model.Experience, bindings []combo.Binding, layer int, st *Stats) []scored {
	conds := exp.Conditions()
	var all []scored
	for _, b := range bindings {
		c := rules.NewCandidate(exp.ID, layer, b.Conditions, nil, b.Result, 0, 0)
		rep := g.validator.Validate(c.Elements())
		if rep.Contradiction {
			st.Contradictions++
			continue
		}
		all = append(all, scored{cand: withScores(c, rep), rep: rep})
	}
	if len(all) == 0 {
		return nil
	}

	aggs := make([]float64, len(all))
	for i, s := range all {
		aggs[i] = s.rep.Aggregate
	}
	mean, std := meanStd(aggs)
	threshold := clamp(mean-std, 0.2, 0.6)

	var kept []scored
	for _, s := range all {
		if s.rep.Aggregate < threshold {
			st.BelowThreshold++
			continue
		}
		s.rank = g.rankScore(s.cand.Core, conds, s.rep.Aggregate)
		kept = append(kept, s)
	}
	slices.SortStableFunc(kept, func(a, b scored) int {
		if c := cmp.Compare(b.rank, a.rank); c != 0 {
			return c
		}
		return cmp.Compare(a.cand.Key(), b.cand.Key())
	})
	return kept
}

// rankScore = base × mean quality × type compatibility × type synergy ×
// diversity bonus.
func (g *Generator) rankScore(core, conds []model.SymbolicElement, base float64) float64 {
	quality, div := 0.0, 0.0
	for _, e := range core {
		quality += Quality(e)
		div += diversity(e, conds)
	}
	n := float64(len(core))
	compat, syn, pairs := 0.0, 0.0, 0
	for i := 0; i < len(core); i++ {
		for j := i + 1; j < len(core); j++ {
			compat += 0.8 + 0.4*g.validator.PairCompatibility(core[i].Content, core[j].Content)
			syn += synergy(core[i].Type, core[j].Type)
			pairs++
		}
	}
	if pairs == 0 {
		compat, syn, pairs = 1, 1, 1
	}
	p := float64(pairs)
	return base * (quality / n) * (compat / p) * (syn / p) * (div / n)
}

var synergyTable = map[[2]model.ElementType]float64{
	{model.Action, model.Tool}:           1.3,
	{model.Object, model.Action}:         1.2,
	{model.Object, model.Tool}:           1.1,
	{model.Characteristic, model.Action}: 1.1,
	{model.Environment, model.Action}:    1.0,
	{model.Characteristic, model.Tool}:   1.0,
	{model.Environment, model.Tool}:      0.9,
}

func synergy(a, b model.ElementType) float64 {
	if a == b {
		return 0.6
	}
	if a > b {
		a, b = b, a
	}
	if s, ok := synergyTable[[2]model.ElementType{a, b}]; ok {
		return s
	}
	return 1.0
}

// dedup keeps up to limit candidates in rank order, skipping any whose
// element keys overlap an accepted one by DedupSimilarity or more.
func (g *Generator) dedup(ranked []scored, limit int, st *Stats) []*rules.Candidate {
	var out []*rules.Candidate
	for _, s := range ranked {
		if len(out) >= limit {
			break
		}
		if slices.ContainsFunc(out, func(c *rules.Candidate) bool {
			return similarity(c, s.cand) >= g.cfg.DedupSimilarity
		}) {
			st.Duplicates++
			continue
		}
		out = append(out, s.cand)
	}
	return out
}

// similarity is the Jaccard index of the two candidates' element keys.
func similarity(a, b *rules.Candidate) float64 {
	set := make(map[string]int)
	for _, e := range a.Elements() {
		set[e.Key()] |= 1
	}
	for _, e := range b.Elements() {
		set[e.Key()] |= 2
	}
	inter := 0
	for _, v := range set {
		if v == 3 {
			inter++
		}
	}
	if len(set) == 0 {
		return 0
	}
	return float64(inter) / float64(len(set))
}
