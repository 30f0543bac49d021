// Package semantic scores lists of symbolic elements on four independent
// layers (lexical, conceptual, logical, pragmatic) and learns frequency and
// success statistics from observed experiences.
package semantic

import (
	"maps"
	"math"
	"sync"

	"github.com/nstehr/eocatr-core/model"
)

// Aggregate weights.
const (
	WeightLexical    = 0.20
	WeightConceptual = 0.30
	WeightLogical    = 0.25
	WeightPragmatic  = 0.25

	// ContradictionThreshold: a logical score below this marks a contradiction.
	ContradictionThreshold = 0.3

	learningRate = 0.1

	// contradictionCap sits just under the threshold so that one
	// contradiction is always reported.
	contradictionCap = 0.29
)

// Report holds the four layer scores and their aggregate. All values are in [0,1].
type Report struct {
	Lexical       float64
	Conceptual    float64
	Logical       float64
	Pragmatic     float64
	Aggregate     float64
	Confidence    float64
	Contradiction bool
}

type outcome struct {
	Success int
	Total   int
}

func (o outcome) rate() float64 {
	// Laplace prior keeps unseen content at 0.5.
	return float64(o.Success+1) / float64(o.Total+2)
}

// Validator owns the learned tables. Scoring methods take a read lock;
// LearnFromExperience is the only writer.
type Validator struct {
	mu        sync.RWMutex
	frequency map[string]float64 // content → EMA of success, starts at 0.5
	content   map[string]outcome
	pairs     map[[2]string]outcome
}

func New() *Validator {
	return &Validator{
		frequency: make(map[string]float64),
		content:   make(map[string]outcome),
		pairs:     make(map[[2]string]outcome),
	}
}

// Snapshot returns an independent copy of the learned state, suitable for a
// worker that must not observe concurrent learning.
func (v *Validator) Snapshot() *Validator {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return &Validator{
		frequency: maps.Clone(v.frequency),
		content:   maps.Clone(v.content),
		pairs:     maps.Clone(v.pairs),
	}
}

// Validate computes every layer for elems.
func (v *Validator) Validate(elems []model.SymbolicElement) Report {
	v.mu.RLock()
	defer v.mu.RUnlock()

	r := Report{
		Lexical:    v.lexicalLocked(elems),
		Conceptual: conceptual(elems),
		Logical:    logical(elems),
		Pragmatic:  v.pragmaticLocked(elems),
	}
	r.Aggregate = clamp01(WeightLexical*r.Lexical + WeightConceptual*r.Conceptual +
		WeightLogical*r.Logical + WeightPragmatic*r.Pragmatic)

	scores := []float64{r.Lexical, r.Conceptual, r.Logical, r.Pragmatic}
	mean, variance := meanVariance(scores)
	r.Confidence = clamp01(mean - math.Min(0.3, 2*variance))
	r.Contradiction = r.Logical < ContradictionThreshold
	return r
}

// Lexical is the average pairwise compatibility weighted by learned frequency.
func (v *Validator) Lexical(elems []model.SymbolicElement) float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lexicalLocked(elems)
}

func (v *Validator) lexicalLocked(elems []model.SymbolicElement) float64 {
	if len(elems) == 0 {
		return 0
	}
	compat := 0.6
	if len(elems) >= 2 {
		sum, n := 0.0, 0
		forPairs(elems, func(a, b model.SymbolicElement) {
			k := pairKey(a.Content, b.Content)
			s, ok := lexicalSeed[k]
			if !ok {
				s = defaultLexical
			}
			if o, seen := v.pairs[k]; seen && o.Total > 0 {
				s = 0.7*s + 0.3*o.rate()
			}
			sum += s
			n++
		})
		compat = sum / float64(n)
	}
	factor := 0.0
	for _, e := range elems {
		w, ok := v.frequency[e.Content]
		if !ok {
			w = 0.5
		}
		factor += 0.8 + 0.4*w
	}
	factor /= float64(len(elems))
	return clamp01(compat * factor)
}

// Conceptual combines causal strength, semantic-field compatibility and
// emotional-valence agreement over ordered pairs.
func (v *Validator) Conceptual(elems []model.SymbolicElement) float64 {
	return conceptual(elems)
}

func conceptual(elems []model.SymbolicElement) float64 {
	switch len(elems) {
	case 0:
		return 0
	case 1:
		if _, ok := semanticNetwork[elems[0].Content]; ok {
			return 0.6
		}
		return 0.5
	}
	sum, n := 0.0, 0
	forPairs(elems, func(a, b model.SymbolicElement) {
		ca, okA := semanticNetwork[a.Content]
		cb, okB := semanticNetwork[b.Content]
		field := unknownField
		valence := 0.5
		if okA && okB {
			field = fieldCompatibility(ca.field, cb.field)
			valence = 1 - math.Abs(ca.valence-cb.valence)/2
		}
		sum += 0.5*CausalStrength(a.Content, b.Content) + 0.3*field + 0.2*valence
		n++
	})
	return clamp01(sum / float64(n))
}

// CausalStrength looks up cause → effect through temporal patterns, two-hop
// causal chains and direct pairs, taking the strongest. Unknown pairs score 0.3.
func CausalStrength(cause, effect string) float64 {
	best := 0.0
	if s, ok := temporalPatterns[[2]string{cause, effect}]; ok {
		best = s
	}
	if s, ok := directCausal[[2]string{cause, effect}]; ok && s > best {
		best = s
	}
	for k, first := range directCausal {
		if k[0] != cause {
			continue
		}
		if second, ok := directCausal[[2]string{k[1], effect}]; ok {
			if s := 0.8 * math.Min(first, second); s > best {
				best = s
			}
		}
	}
	if best == 0 {
		return defaultCausal
	}
	return best
}

func fieldCompatibility(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if s, ok := relatedFields[pairKey(a, b)]; ok {
		return s
	}
	if a == "environment" || b == "environment" {
		return 0.6
	}
	return unrelatedField
}

// Logical penalizes contradictions and ordering errors. Any contradiction
// caps the score at 0.3; each additional one halves it.
func (v *Validator) Logical(elems []model.SymbolicElement) float64 {
	return logical(elems)
}

func logical(elems []model.SymbolicElement) float64 {
	if len(elems) == 0 {
		return 0
	}
	score := 1.0
	contradictionCount := 0
	seen := make(map[string]bool, len(elems))
	forPairs(elems, func(a, b model.SymbolicElement) {
		if contradictions[pairKey(a.Content, b.Content)] {
			contradictionCount++
		}
		// b follows a; a known a-after-b pattern means reversed order.
		if _, ok := temporalPatterns[[2]string{b.Content, a.Content}]; ok {
			if _, fwd := temporalPatterns[[2]string{a.Content, b.Content}]; !fwd {
				score -= 0.15
			}
		}
	})
	for i, e := range elems {
		if e.Type == model.Result && i != len(elems)-1 {
			score -= 0.3
		}
		if seen[e.Content] {
			score -= 0.1
		}
		seen[e.Content] = true
	}
	if contradictionCount > 0 {
		score = math.Min(score, contradictionCap*math.Pow(0.5, float64(contradictionCount-1)))
	}
	return clamp01(score)
}

// CheckLogicalContradiction reports Logical(elems) < 0.3.
func (v *Validator) CheckLogicalContradiction(elems []model.SymbolicElement) bool {
	return logical(elems) < ContradictionThreshold
}

// Pragmatic multiplies context fit, feasibility, effectiveness and
// historical success, each mapped into a bounded range.
func (v *Validator) Pragmatic(elems []model.SymbolicElement) float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pragmaticLocked(elems)
}

func (v *Validator) pragmaticLocked(elems []model.SymbolicElement) float64 {
	if len(elems) == 0 {
		return 0
	}
	fit := 0.5 + 0.5*contextFit(elems)
	feasible := 0.3 + 0.7*feasibility(elems)

	eff := 0.0
	hist := 0.0
	for _, e := range elems {
		i, ok := intensity[e.Content]
		if !ok {
			i = defaultIntensity
		}
		eff += i
		hist += v.content[e.Content].rate()
	}
	n := float64(len(elems))
	effectiveness := 0.5 + 0.5*eff/n
	historical := 0.5 + 0.5*hist/n
	return clamp01(fit * feasible * effectiveness * historical)
}

// DetectContext returns the keyword bucket with the most hits, or "" when
// nothing matches.
func DetectContext(elems []model.SymbolicElement) string {
	best, bestHits := "", 0
	for _, name := range []string{"danger", "resource", "shelter"} {
		hits := 0
		for _, e := range elems {
			if inBucket(name, e.Content) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = name, hits
		}
	}
	return best
}

func contextFit(elems []model.SymbolicElement) float64 {
	ctx := DetectContext(elems)
	if ctx == "" {
		return 0.5
	}
	fit := 0.0
	for _, e := range elems {
		switch {
		case inBucket(ctx, e.Content):
			fit += 1
		case bucketOf(e.Content) == "":
			fit += 0.5
		}
	}
	return fit / float64(len(elems))
}

func inBucket(bucket, content string) bool {
	for _, c := range contextBuckets[bucket] {
		if c == content {
			return true
		}
	}
	return false
}

func bucketOf(content string) string {
	for name := range contextBuckets {
		if inBucket(name, content) {
			return name
		}
	}
	return ""
}

func feasibility(elems []model.SymbolicElement) float64 {
	present := make(map[string]bool)
	for _, e := range elems {
		present[e.Type.String()] = true
	}
	required, satisfied := 0, 0
	for _, e := range elems {
		if e.Type != model.Action {
			continue
		}
		for _, anyOf := range preconditions[e.Content] {
			required++
			for _, t := range anyOf {
				if present[t] {
					satisfied++
					break
				}
			}
		}
	}
	if required == 0 {
		return 1
	}
	return float64(satisfied) / float64(required)
}

// IsPositiveOutcome classifies a result by valence, falling back to a fixed
// list of beneficial outcomes.
func IsPositiveOutcome(e model.SymbolicElement) bool {
	if c, ok := semanticNetwork[e.Content]; ok {
		return c.valence > 0
	}
	return positiveOutcomes[e.Content]
}

// LearnFromExperience updates frequency weights (exponential moving average)
// and the success counters for every element and element pair.
func (v *Validator) LearnFromExperience(elems []model.SymbolicElement, success bool) {
	if len(elems) == 0 {
		return
	}
	target := 0.0
	if success {
		target = 1.0
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range elems {
		w, ok := v.frequency[e.Content]
		if !ok {
			w = 0.5
		}
		v.frequency[e.Content] = (1-learningRate)*w + learningRate*target

		o := v.content[e.Content]
		o.Total++
		if success {
			o.Success++
		}
		v.content[e.Content] = o
	}
	forPairs(elems, func(a, b model.SymbolicElement) {
		k := pairKey(a.Content, b.Content)
		o := v.pairs[k]
		o.Total++
		if success {
			o.Success++
		}
		v.pairs[k] = o
	})
}

// SuccessRate returns the learned success rate for content (0.5 when unseen).
func (v *Validator) SuccessRate(content string) float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.content[content].rate()
}

// Observations returns how many times content has been learned from.
func (v *Validator) Observations(content string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.content[content].Total
}

// PairCompatibility exposes the lexical table entry for a and b.
func (v *Validator) PairCompatibility(a, b string) float64 {
	if s, ok := lexicalSeed[pairKey(a, b)]; ok {
		return s
	}
	return defaultLexical
}

func forPairs(elems []model.SymbolicElement, fn func(a, b model.SymbolicElement)) {
	for i := 0; i < len(elems); i++ {
		for j := i + 1; j < len(elems); j++ {
			fn(elems[i], elems[j])
		}
	}
}

func meanVariance(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return mean, variance / float64(len(xs))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
