package prune

import (
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

// patternMatch averages, over the pattern, the similarity of each element to
// the experience's element of the same type.
func patternMatch(pattern []model.SymbolicElement, x *model.Experience) float64 {
	if len(pattern) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range pattern {
		if e := x.Get(p.Type); e != nil {
			sum += similarity(p, *e)
		}
	}
	return sum / float64(len(pattern))
}

// similarity is 1 for equal content, otherwise 0.8 × the Jaccard index of
// the semantic tags.
func similarity(a, b model.SymbolicElement) float64 {
	if a.Content == b.Content {
		return 1
	}
	return 0.8 * tagJaccard(a.SemanticTags, b.SemanticTags)
}

func tagJaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]int, len(a)+len(b))
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	inter := 0
	for _, v := range set {
		if v == 3 {
			inter++
		}
	}
	return float64(inter) / float64(len(set))
}

// predictionAccuracy compares the candidate's prediction with the observed
// result. An experience whose result is the opposite of the prediction and
// which contains the opposite of some pattern element is mirrored evidence,
// worth 0.6.
func (v *Validator) predictionAccuracy(c *rules.Candidate, pattern []model.SymbolicElement, x *model.Experience) (float64, bool) {
	pred, got := c.Result, *x.Result
	if pred.Content == got.Content {
		return 1, false
	}
	if opp, ok := v.opposites.Opposite(pred.Content); ok && opp == got.Content {
		for _, p := range pattern {
			po, ok := v.opposites.Opposite(p.Content)
			if !ok {
				continue
			}
			if e := x.Get(p.Type); e != nil && e.Content == po {
				return 0.6, true
			}
		}
	}
	return tagJaccard(pred.SemanticTags, got.SemanticTags), false
}
