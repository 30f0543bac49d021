// Package prune scores candidate rules against historical experiences,
// decides promotion, and maintains the rule repository.
package prune

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
	"github.com/nstehr/eocatr-core/semantic"
)

// Config holds the pruning knobs.
type Config struct {
	PromotionThreshold float64       `yaml:"promotion_threshold"`
	LayerThresholds    [3]float64    `yaml:"layer_thresholds,flow"`
	RelevanceCutoff    float64       `yaml:"relevance_cutoff"`
	SupportCutoff      float64       `yaml:"support_cutoff"`
	RejectCutoff       float64       `yaml:"reject_cutoff"`
	ValidatedScore     float64       `yaml:"validated_score"`
	MinSupport         int           `yaml:"min_support"`
	PruneScore         float64       `yaml:"prune_score"`
	MaxAge             time.Duration `yaml:"max_age"`
	AgedScore          float64       `yaml:"aged_score"`
	MinRejections      int           `yaml:"min_rejections"`
}

func DefaultConfig() Config {
	return Config{
		PromotionThreshold: 0.4,
		LayerThresholds:    [3]float64{0.6, 0.7, 0.8},
		RelevanceCutoff:    0.3,
		SupportCutoff:      0.7,
		RejectCutoff:       0.3,
		ValidatedScore:     0.6,
		MinSupport:         2,
		PruneScore:         0.2,
		MaxAge:             30 * 24 * time.Hour,
		AgedScore:          0.5,
		MinRejections:      3,
	}
}

// Evidence summarizes one evaluation of a candidate against a batch of
// experiences.
type Evidence struct {
	Support           int
	Reject            int
	Neutral           int
	Indirect          int
	Relevant          int
	Considered        int
	Strength          float64 // Σ match×accuracy over relevant experiences
	Confidence        float64
	Empirical         float64
	ValidationQuality float64
}

// Verdict is the outcome of Assess.
type Verdict int

const (
	Hold Verdict = iota
	Promote
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Promote:
		return "promote"
	case Reject:
		return "reject"
	}
	return "hold"
}

type layerStats struct {
	evaluated int
	promoted  int
}

// Validator is safe for concurrent use; candidate mutation is left to the
// caller's single writer.
type Validator struct {
	cfg       Config
	opposites semantic.OppositeTable

	mu     sync.Mutex
	layers map[int]*layerStats
}

// New builds a validator; a nil table selects semantic.DefaultOpposites.
func New(opposites semantic.OppositeTable, cfg Config) *Validator {
	if opposites == nil {
		opposites = semantic.DefaultOpposites()
	}
	return &Validator{cfg: cfg, opposites: opposites, layers: make(map[int]*layerStats)}
}

// Evaluate scans history (skipping the candidate's own source experience),
// records each relevant experience on the candidate's counters and updates
// its confidence. Irrelevant experiences leave the candidate untouched.
func (v *Validator) Evaluate(c *rules.Candidate, history []*model.Experience) Evidence {
	var ev Evidence
	pattern := c.Pattern()
	for _, x := range history {
		if x == nil || x.ID == c.SourceID || !x.HasResult() {
			continue
		}
		ev.Considered++
		match := patternMatch(pattern, x)
		if match < v.cfg.RelevanceCutoff {
			continue
		}
		ev.Relevant++
		acc, mirrored := v.predictionAccuracy(c, pattern, x)
		ev.Strength += match * acc
		switch {
		case mirrored:
			ev.Indirect++
			c.RecordIndirect()
		case acc >= v.cfg.SupportCutoff:
			ev.Support++
			c.RecordSupport()
		case acc <= v.cfg.RejectCutoff:
			ev.Reject++
			c.RecordRejection()
		default:
			ev.Neutral++
			c.RecordNeutral()
		}
	}

	switch {
	case ev.Relevant > 0:
		ratio := float64(c.Support()) / float64(c.Total())
		c.SetConfidence(0.6*ratio + 0.4*ev.Strength/float64(ev.Relevant))
	case c.Total() == 0:
		c.SetConfidence(0.3 * c.Semantic)
	}
	ev.Confidence = c.Confidence()

	if ev.Relevant > 0 {
		weight := math.Min(float64(ev.Considered)/3, 1)
		ev.Empirical = clamp01(float64(ev.Support)/float64(ev.Relevant)*weight*0.8 +
			float64(ev.Indirect)/float64(ev.Relevant)*0.2)
	}
	ev.ValidationQuality = validationQuality(ev)
	return ev
}

// validationQuality weighs coverage, consistency and sample adequacy
// (saturating at five relevant experiences).
func validationQuality(ev Evidence) float64 {
	coverage := 0.0
	if ev.Considered > 0 {
		coverage = float64(ev.Relevant) / float64(ev.Considered)
	}
	consistency := 0.0
	if decided := ev.Support + ev.Reject; decided > 0 {
		consistency = float64(max(ev.Support, ev.Reject)) / float64(decided)
	}
	adequacy := math.Min(float64(ev.Relevant)/5, 1)
	return clamp01(0.4*coverage + 0.4*consistency + 0.2*adequacy)
}

// ShouldPromote applies the dual-factor rule:
// 0.5·semantic + 0.5·empirical ≥ PromotionThreshold.
func (v *Validator) ShouldPromote(semanticScore float64, ev Evidence) bool {
	return 0.5*semanticScore+0.5*ev.Empirical >= v.cfg.PromotionThreshold
}

// Assess evaluates c and returns the verdict. A candidate is rejected only
// with at least two rejections and a confidence below 1 − the layer's
// adaptive threshold; otherwise it is held for later evidence.
func (v *Validator) Assess(c *rules.Candidate, history []*model.Experience) (Evidence, Verdict) {
	ev := v.Evaluate(c, history)
	verdict := Hold
	switch {
	case v.ShouldPromote(c.Semantic, ev):
		verdict = Promote
	case c.Rejection() >= 2 && c.Confidence() < 1-v.AdaptiveThreshold(c.Layer, ev.Relevant):
		verdict = Reject
	}
	c.SetScore(TotalScore(c))
	switch verdict {
	case Promote:
		c.SetStatus(rules.Promoted)
	case Reject:
		c.SetStatus(rules.Rejected)
	}

	v.mu.Lock()
	ls := v.layerLocked(c.Layer)
	ls.evaluated++
	if verdict == Promote {
		ls.promoted++
	}
	v.mu.Unlock()

	slog.Debug("candidate assessed", "rule", c.Key(), "layer", c.Layer, "verdict", verdict,
		"support", ev.Support, "reject", ev.Reject, "empirical", ev.Empirical, "semantic", c.Semantic)
	return ev, verdict
}

func (v *Validator) layerLocked(layer int) *layerStats {
	ls, ok := v.layers[layer]
	if !ok {
		ls = &layerStats{}
		v.layers[layer] = ls
	}
	return ls
}

// AdaptiveThreshold shifts the layer's base threshold by ±0.1 for sample
// count and by ±0.1 for the layer's promotion rate, clamped to [0.3, 0.9].
func (v *Validator) AdaptiveThreshold(layer, samples int) float64 {
	idx := min(max(layer, 1), 3) - 1
	t := v.cfg.LayerThresholds[idx]
	switch {
	case samples >= 5:
		t -= 0.1
	case samples < 2:
		t += 0.1
	}

	v.mu.Lock()
	ls := v.layerLocked(layer)
	evaluated, promoted := ls.evaluated, ls.promoted
	v.mu.Unlock()
	if evaluated > 0 {
		rate := float64(promoted) / float64(evaluated)
		switch {
		case rate > 0.5:
			t += 0.1
		case rate < 0.1 && evaluated >= 10:
			t -= 0.1
		}
	}
	return clamp(t, 0.3, 0.9)
}

// PromotionRate reports promoted/evaluated for a layer.
func (v *Validator) PromotionRate(layer int) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	ls, ok := v.layers[layer]
	if !ok || ls.evaluated == 0 {
		return 0
	}
	return float64(ls.promoted) / float64(ls.evaluated)
}

// TotalScore = 0.4·confidence + 0.3·semantic + 0.3·support ratio
// (0.5 without evidence).
func TotalScore(c *rules.Candidate) float64 {
	return clamp01(0.4*c.Confidence() + 0.3*c.Semantic + 0.3*c.SupportRatio())
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
