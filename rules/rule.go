package rules

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nstehr/eocatr-core/model"
)

var (
	ErrMissingResult       = errors.New("rule has no result")
	ErrInvalidElementType  = errors.New("invalid element type")
	ErrConstraintViolation = errors.New("rule violates EOCATR constraints")
	ErrRuleNotFound        = errors.New("rule not found")
)

// Rule is anything the standardizer and chain search can consume.
// Pattern returns every condition element (never the Result).
type Rule interface {
	ID() string
	Pattern() []model.SymbolicElement
	Prediction() model.SymbolicElement
	Confidence() float64
	RuleType() string
}

// Status tracks a candidate through pruning.
type Status int

const (
	Pending Status = iota
	Promoted
	Rejected
)

func (s Status) String() string {
	switch s {
	case Promoted:
		return "promoted"
	case Rejected:
		return "rejected"
	}
	return "pending"
}

// Candidate is a rule produced by blooming. Content fields are fixed at
// construction; pruning only touches the statistics through methods.
//
// Core holds the elements the candidate was generated from. A first-layer
// candidate also carries an Anchor: the strongest element of the class its
// focal element lacks, so that the full pattern still has both a controllable
// and a contextual factor.
type Candidate struct {
	id        string
	SourceID  string
	Core      []model.SymbolicElement
	Anchor    *model.SymbolicElement
	Result    model.SymbolicElement
	Layer     int
	Semantic  float64
	Logical   float64
	MirrorOf  string
	Kind      string
	CreatedAt time.Time

	confidence float64
	score      float64
	support    int
	rejection  int
	indirect   int
	total      int
	usage      int
	successes  int
	validated  bool
	status     Status
}

// NewCandidate builds a pending candidate with a fresh id. Confidence starts
// at the no-evidence floor of 0.3×semantic.
func NewCandidate(sourceID string, layer int, core []model.SymbolicElement, anchor *model.SymbolicElement, result model.SymbolicElement, semanticScore, logicalScore float64) *Candidate {
	c := &Candidate{
		id:        uuid.NewString(),
		SourceID:  sourceID,
		Core:      slices.Clone(core),
		Result:    result,
		Layer:     layer,
		Semantic:  clamp01(semanticScore),
		Logical:   clamp01(logicalScore),
		CreatedAt: time.Now(),
	}
	if anchor != nil {
		a := *anchor
		c.Anchor = &a
	}
	c.confidence = 0.3 * c.Semantic
	return c
}

func (c *Candidate) ID() string { return c.id }

// Pattern returns the core elements plus the anchor, in E-O-C-A-T order.
func (c *Candidate) Pattern() []model.SymbolicElement {
	out := slices.Clone(c.Core)
	if c.Anchor != nil {
		out = append(out, *c.Anchor)
	}
	slices.SortStableFunc(out, func(a, b model.SymbolicElement) int { return int(a.Type) - int(b.Type) })
	return out
}

func (c *Candidate) Prediction() model.SymbolicElement { return c.Result }

func (c *Candidate) Confidence() float64 { return c.confidence }

// RuleType names the generation path, e.g. "layer2" or "mirror".
func (c *Candidate) RuleType() string {
	switch {
	case c.Kind != "":
		return c.Kind
	case c.MirrorOf != "":
		return "mirror"
	}
	return fmt.Sprintf("layer%d", c.Layer)
}

// Elements returns Pattern followed by the Result.
func (c *Candidate) Elements() []model.SymbolicElement {
	return append(c.Pattern(), c.Result)
}

// Key identifies the candidate by content so that re-promotion of the same
// rule merges statistics. The anchor is kept apart from the core elements so
// that a first-layer candidate differs from the pair it resembles.
func (c *Candidate) Key() string {
	keys := make([]string, len(c.Core))
	for i, e := range c.Core {
		keys[i] = e.Key()
	}
	slices.Sort(keys)
	k := strings.Join(keys, ",")
	if c.Anchor != nil {
		k += "|" + c.Anchor.Key()
	}
	return k + "->" + c.Result.Key()
}

func (c *Candidate) String() string { return c.Key() }

// SetConfidence clamps v into [0,1].
func (c *Candidate) SetConfidence(v float64) { c.confidence = clamp01(v) }

func (c *Candidate) Score() float64     { return c.score }
func (c *Candidate) SetScore(v float64) { c.score = clamp01(v) }

// RecordSupport counts one supporting experience.
func (c *Candidate) RecordSupport() {
	c.support++
	c.total++
}

// RecordIndirect counts a relevant experience whose outcome mirrors the
// prediction under mirrored conditions. It is neither support nor rejection.
func (c *Candidate) RecordIndirect() {
	c.indirect++
	c.total++
}

func (c *Candidate) RecordRejection() {
	c.rejection++
	c.total++
}

// RecordNeutral counts a relevant experience that neither supports nor rejects.
func (c *Candidate) RecordNeutral() { c.total++ }

// RecordUsage counts one application of the rule in a decision.
func (c *Candidate) RecordUsage(success bool) {
	c.usage++
	if success {
		c.successes++
	}
}

func (c *Candidate) Support() int         { return c.support }
func (c *Candidate) Rejection() int       { return c.rejection }
func (c *Candidate) IndirectSupport() int { return c.indirect }
func (c *Candidate) Total() int           { return c.total }
func (c *Candidate) Usage() int           { return c.usage }
func (c *Candidate) Successes() int       { return c.successes }
func (c *Candidate) Status() Status       { return c.status }
func (c *Candidate) Validated() bool      { return c.validated }

func (c *Candidate) SetStatus(s Status) { c.status = s }
func (c *Candidate) MarkValidated()     { c.validated = true }

// SuccessRate is successes/usage, or 0 for an unused rule.
func (c *Candidate) SuccessRate() float64 {
	if c.usage == 0 {
		return 0
	}
	return float64(c.successes) / float64(c.usage)
}

// SupportRatio is support/(support+rejection), or 0.5 without evidence.
func (c *Candidate) SupportRatio() float64 {
	if c.support+c.rejection == 0 {
		return 0.5
	}
	return float64(c.support) / float64(c.support+c.rejection)
}

// Age is measured from CreatedAt.
func (c *Candidate) Age(now time.Time) time.Duration { return now.Sub(c.CreatedAt) }

// Clone returns an independent copy, statistics included.
func (c *Candidate) Clone() *Candidate {
	cp := *c
	cp.Core = slices.Clone(c.Core)
	if c.Anchor != nil {
		a := *c.Anchor
		cp.Anchor = &a
	}
	return &cp
}

// merge folds the statistics of other (the same rule bloomed again) into c.
// Counters take the larger of the two values.
func (c *Candidate) merge(other *Candidate) {
	c.support = max(c.support, other.support)
	c.rejection = max(c.rejection, other.rejection)
	c.indirect = max(c.indirect, other.indirect)
	c.total = max(c.total, other.total)
	c.usage = max(c.usage, other.usage)
	c.successes = max(c.successes, other.successes)
	c.confidence = math.Max(c.confidence, other.confidence)
	c.Semantic = math.Max(c.Semantic, other.Semantic)
	c.score = math.Max(c.score, other.score)
	c.validated = c.validated || other.validated
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
