package rules

import (
	"fmt"
	"time"

	"github.com/nstehr/eocatr-core/model"
)

// Record is the persisted form of a rule: one content column per EOCATR slot
// plus the statistics. Anchor names the slot (if any) that holds a
// first-layer candidate's anchor element.
type Record struct {
	ID             string    `json:"rule_id" yaml:"rule_id"`
	Type           string    `json:"type" yaml:"type"`
	Layer          int       `json:"layer" yaml:"layer"`
	SourceID       string    `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	MirrorOf       string    `json:"mirror_of,omitempty" yaml:"mirror_of,omitempty"`
	Environment    string    `json:"environment,omitempty" yaml:"environment,omitempty"`
	Object         string    `json:"object,omitempty" yaml:"object,omitempty"`
	Characteristic string    `json:"condition,omitempty" yaml:"condition,omitempty"`
	Action         string    `json:"action,omitempty" yaml:"action,omitempty"`
	Tool           string    `json:"tool,omitempty" yaml:"tool,omitempty"`
	Result         string    `json:"result" yaml:"result"`
	Anchor         string    `json:"anchor,omitempty" yaml:"anchor,omitempty"`
	Semantic       float64   `json:"semantic_score" yaml:"semantic_score"`
	Confidence     float64   `json:"confidence" yaml:"confidence"`
	Score          float64   `json:"score" yaml:"score"`
	SuccessRate    float64   `json:"success_rate" yaml:"success_rate"`
	Support        int       `json:"support_count" yaml:"support_count"`
	Rejection      int       `json:"rejection_count" yaml:"rejection_count"`
	Indirect       int       `json:"indirect_count,omitempty" yaml:"indirect_count,omitempty"`
	Total          int       `json:"total_count" yaml:"total_count"`
	Usage          int       `json:"usage_count" yaml:"usage_count"`
	Successes      int       `json:"success_count" yaml:"success_count"`
	Validated      bool      `json:"validated,omitempty" yaml:"validated,omitempty"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

func (rec *Record) slot(t model.ElementType) *string {
	switch t {
	case model.Environment:
		return &rec.Environment
	case model.Object:
		return &rec.Object
	case model.Characteristic:
		return &rec.Characteristic
	case model.Action:
		return &rec.Action
	case model.Tool:
		return &rec.Tool
	case model.Result:
		return &rec.Result
	}
	return nil
}

// Record returns the persisted form of c.
func (c *Candidate) Record() Record {
	rec := Record{
		ID:          c.ID(),
		Type:        c.RuleType(),
		Layer:       c.Layer,
		SourceID:    c.SourceID,
		MirrorOf:    c.MirrorOf,
		Result:      c.Result.Content,
		Semantic:    c.Semantic,
		Confidence:  c.Confidence(),
		Score:       c.Score(),
		SuccessRate: c.SuccessRate(),
		Support:     c.Support(),
		Rejection:   c.Rejection(),
		Indirect:    c.IndirectSupport(),
		Total:       c.Total(),
		Usage:       c.Usage(),
		Successes:   c.Successes(),
		Validated:   c.Validated(),
		CreatedAt:   c.CreatedAt,
	}
	for _, e := range c.Core {
		*rec.slot(e.Type) = e.Content
	}
	if c.Anchor != nil {
		*rec.slot(c.Anchor.Type) = c.Anchor.Content
		rec.Anchor = c.Anchor.Type.String()
	}
	return rec
}

// CandidateFromRecord rebuilds a promoted candidate. Tags and abstraction
// levels are not persisted.
func CandidateFromRecord(rec Record) (*Candidate, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("%w: empty rule id", ErrConstraintViolation)
	}
	if rec.Result == "" {
		return nil, ErrMissingResult
	}
	var anchorType model.ElementType = -1
	if rec.Anchor != "" {
		t, err := model.ParseElementType(rec.Anchor)
		if err != nil || t == model.Result {
			return nil, fmt.Errorf("%w: anchor %q", ErrInvalidElementType, rec.Anchor)
		}
		anchorType = t
	}

	c := &Candidate{
		id:         rec.ID,
		SourceID:   rec.SourceID,
		Result:     model.NewElement(model.Result, rec.Result, 0),
		Layer:      rec.Layer,
		Semantic:   clamp01(rec.Semantic),
		MirrorOf:   rec.MirrorOf,
		CreatedAt:  rec.CreatedAt,
		confidence: clamp01(rec.Confidence),
		score:      clamp01(rec.Score),
		support:    rec.Support,
		rejection:  rec.Rejection,
		indirect:   rec.Indirect,
		total:      rec.Total,
		usage:      rec.Usage,
		successes:  rec.Successes,
		validated:  rec.Validated,
		status:     Promoted,
	}
	if rec.Type != c.RuleType() {
		c.Kind = rec.Type
	}
	for _, t := range model.NonResultTypes {
		content := *rec.slot(t)
		if content == "" {
			continue
		}
		e := model.NewElement(t, content, 0)
		if t == anchorType {
			c.Anchor = &e
			continue
		}
		c.Core = append(c.Core, e)
	}
	if anchorType >= 0 && c.Anchor == nil {
		return nil, fmt.Errorf("%w: anchor slot %s is empty", ErrConstraintViolation, rec.Anchor)
	}
	if len(c.Core) == 0 {
		return nil, fmt.Errorf("%w: no condition elements", ErrConstraintViolation)
	}
	return c, nil
}
