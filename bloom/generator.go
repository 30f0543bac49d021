// Package bloom generates candidate rules from a single experience in three
// layers (one, two and three condition elements) plus mirrored variants.
package bloom

import (
	"log/slog"
	"math"
	"sync"

	"github.com/nstehr/eocatr-core/combo"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
	"github.com/nstehr/eocatr-core/semantic"
)

// Config holds the blooming knobs. Zero values are replaced by defaults in
// NewGenerator.
type Config struct {
	MinPairs        int     `yaml:"min_pairs"`
	MaxPairs        int     `yaml:"max_pairs"`
	Layer3Gate      float64 `yaml:"layer3_gate"`
	MaxTriples      int     `yaml:"max_triples"`
	MirrorThreshold float64 `yaml:"mirror_threshold"`
	MirrorRatio     float64 `yaml:"mirror_ratio"`
	DedupSimilarity float64 `yaml:"dedup_similarity"`
}

func DefaultConfig() Config {
	return Config{
		MinPairs:        8,
		MaxPairs:        20,
		Layer3Gate:      0.3,
		MaxTriples:      3,
		MirrorThreshold: 0.5,
		MirrorRatio:     0.5,
		DedupSimilarity: 0.8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinPairs <= 0 {
		c.MinPairs = d.MinPairs
	}
	if c.MaxPairs < c.MinPairs {
		c.MaxPairs = max(d.MaxPairs, c.MinPairs)
	}
	if c.Layer3Gate <= 0 {
		c.Layer3Gate = d.Layer3Gate
	}
	if c.MaxTriples <= 0 {
		c.MaxTriples = d.MaxTriples
	}
	if c.MirrorThreshold <= 0 {
		c.MirrorThreshold = d.MirrorThreshold
	}
	if c.MirrorRatio <= 0 {
		c.MirrorRatio = d.MirrorRatio
	}
	if c.DedupSimilarity <= 0 {
		c.DedupSimilarity = d.DedupSimilarity
	}
	return c
}

// Stats counts what one generation (or, on Generator.Totals, every
// generation) produced and discarded.
type Stats struct {
	Layer1         int
	Layer2         int
	Layer3         int
	Mirror         int
	Contradictions int
	BelowThreshold int
	Duplicates     int
	PairsTried     int
	Layer3Skipped  bool
}

// Layer2Rate is the share of tried pairs that were accepted.
func (s Stats) Layer2Rate() float64 {
	if s.PairsTried == 0 {
		return 0
	}
	return float64(s.Layer2) / float64(s.PairsTried)
}

func (s *Stats) add(o Stats) {
	s.Layer1 += o.Layer1
	s.Layer2 += o.Layer2
	s.Layer3 += o.Layer3
	s.Mirror += o.Mirror
	s.Contradictions += o.Contradictions
	s.BelowThreshold += o.BelowThreshold
	s.Duplicates += o.Duplicates
	s.PairsTried += o.PairsTried
}

// Generator is a pure function of (experience, validator, config) apart from
// its running Stats totals.
type Generator struct {
	validator *semantic.Validator
	opposites semantic.OppositeTable
	combos    *combo.Generator
	cfg       Config

	mu     sync.Mutex
	totals Stats
}

// NewGenerator wires a validator and an opposite table (nil selects
// semantic.DefaultOpposites).
func NewGenerator(v *semantic.Validator, opposites semantic.OppositeTable, cfg Config) *Generator {
	if opposites == nil {
		opposites = semantic.DefaultOpposites()
	}
	slog.Debug("combination table", "by_complexity", combo.Stats())
	return &Generator{
		validator: v,
		opposites: opposites,
		combos:    combo.NewGenerator(),
		cfg:       cfg.withDefaults(),
	}
}

// Generate runs every layer plus mirroring. Experiences without a Result
// produce nothing.
func (g *Generator) Generate(exp *model.Experience) ([]*rules.Candidate, Stats) {
	var st Stats
	if exp == nil || !exp.HasResult() || len(exp.Conditions()) == 0 {
		return nil, st
	}

	out := g.Layer1(exp, &st)
	pairs := g.Layer2(exp, &st)
	out = append(out, pairs...)
	if st.Layer2Rate() >= g.cfg.Layer3Gate {
		out = append(out, g.Layer3(exp, &st)...)
	} else {
		st.Layer3Skipped = true
	}
	out = append(out, g.Mirror(out, &st)...)

	g.mu.Lock()
	g.totals.add(st)
	g.mu.Unlock()

	slog.Debug("bloomed experience", "experience", exp.ID,
		"layer1", st.Layer1, "layer2", st.Layer2, "layer3", st.Layer3, "mirror", st.Mirror,
		"contradictions", st.Contradictions, "duplicates", st.Duplicates)
	return out, st
}

// Totals returns the accumulated statistics of every Generate call.
func (g *Generator) Totals() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totals
}

// Quality scores an element on its own: content completeness times a type
// multiplier, plus small bonuses for abstraction level and semantic tags.
func Quality(e model.SymbolicElement) float64 {
	completeness := 0.6 + 0.4*math.Min(float64(len(e.Content))/6, 1)
	bonus := 0.05*math.Min(float64(e.AbstractionLevel), 3) + 0.02*math.Min(float64(len(e.SemanticTags)), 3)
	return clamp01(completeness*typeMultiplier[e.Type] + bonus)
}

var typeMultiplier = map[model.ElementType]float64{
	model.Environment:    0.9,
	model.Object:         1.0,
	model.Characteristic: 0.95,
	model.Action:         1.1,
	model.Tool:           1.05,
	model.Result:         1.0,
}

// diversity boosts elements whose class (controllable or contextual) is rare
// among the experience's conditions.
func diversity(e model.SymbolicElement, conds []model.SymbolicElement) float64 {
	if len(conds) == 0 {
		return 1
	}
	same := 0
	for _, c := range conds {
		if c.Type.Controllable() == e.Type.Controllable() {
			same++
		}
	}
	share := float64(same) / float64(len(conds))
	return clamp(1+0.2*(1-2*share), 0.8, 1.2)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(v / float64(len(xs)))
}
