package pattern

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

const (
	// FillThreshold is the minimum slot score for a rule to fill a slot.
	FillThreshold = 0.25

	keywordWeight = 0.3
	goalWeight    = 0.4
	confWeight    = 0.2
	successWeight = 0.1
)

// Match is a template whose slots were all filled and whose edges hold.
type Match struct {
	Template  Template
	Rules     []*rules.StandardizedRule // one per slot, in slot order
	Relevance float64                   // mean slot score in [0,1]
}

// IDs lists the matched rule ids in slot order.
func (m Match) IDs() []string {
	out := make([]string, len(m.Rules))
	for i, r := range m.Rules {
		out[i] = r.ID
	}
	return out
}

// Library is an immutable set of templates.
type Library struct {
	templates []Template
}

// NewLibrary returns a library over ts, or over DefaultTemplates when ts is
// empty.
func NewLibrary(ts ...Template) *Library {
	if len(ts) == 0 {
		ts = DefaultTemplates()
	}
	return &Library{templates: slices.Clone(ts)}
}

func (l *Library) Templates() []Template { return slices.Clone(l.templates) }

// FindApplicable fills every template greedily, taking the best unused rule
// per slot, then checks the template's edges. Templates with an unfillable
// slot or a broken edge are dropped. Results are ordered by relevance.
func (l *Library) FindApplicable(goal model.StructuredGoal, rs []*rules.StandardizedRule) []Match {
	if len(rs) == 0 {
		return nil
	}
	terms := goal.Terms()
	var out []Match
	for _, t := range l.templates {
		m, ok := fill(t, terms, rs)
		if !ok {
			continue
		}
		if err := checkEdges(m); err != nil {
			slog.Debug("pattern rejected", "template", t.Name, "error", err)
			continue
		}
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b Match) int {
		if c := cmp.Compare(b.Relevance, a.Relevance); c != 0 {
			return c
		}
		return strings.Compare(a.Template.Name, b.Template.Name)
	})
	return out
}

func fill(t Template, terms []string, rs []*rules.StandardizedRule) (Match, bool) {
	used := make(map[string]bool, len(t.Slots))
	m := Match{Template: t, Rules: make([]*rules.StandardizedRule, len(t.Slots))}
	total := 0.0
	for i, slot := range t.Slots {
		var best *rules.StandardizedRule
		bestScore := -1.0
		for _, r := range rs {
			if used[r.ID] {
				continue
			}
			s := SlotScore(slot, terms, r)
			if s > bestScore || (s == bestScore && best != nil && r.ID < best.ID) {
				best, bestScore = r, s
			}
		}
		if best == nil || bestScore < FillThreshold {
			return Match{}, false
		}
		used[best.ID] = true
		m.Rules[i] = best
		total += bestScore
	}
	m.Relevance = min(total/float64(len(t.Slots)), 1)
	return m, true
}

func checkEdges(m Match) error {
	for _, e := range m.Template.Edges {
		fi, ti := m.Template.slotIndex(e.From), m.Template.slotIndex(e.To)
		if fi < 0 || ti < 0 {
			return fmt.Errorf("template %s: unknown slot in edge %s->%s", m.Template.Name, e.From, e.To)
		}
		from, to := m.Rules[fi], m.Rules[ti]
		switch e.Link {
		case Connects:
			if ok, _ := from.CanConnectTo(to); !ok {
				return fmt.Errorf("%s (%s) does not connect to %s (%s)", e.From, from.ID, e.To, to.ID)
			}
		case SharesResult:
			if !sharesResult(from, to) {
				return fmt.Errorf("%s (%s) and %s (%s) predict different results", e.From, from.ID, e.To, to.ID)
			}
		}
	}
	return nil
}

func sharesResult(a, b *rules.StandardizedRule) bool {
	ra, oka := result(a)
	rb, okb := result(b)
	return oka && okb && rules.ValueCompatible(ra.Content, rb.Content)
}

func result(r *rules.StandardizedRule) (model.SymbolicElement, bool) {
	for _, e := range r.Outputs {
		if e.Type == model.Result {
			return e, true
		}
	}
	return model.SymbolicElement{}, false
}

// SlotScore rates r for slot: 0.3 when a keyword appears in any element,
// up to 0.4 for the share of goal terms its outputs cover, plus 0.2 of its
// confidence and 0.1 of its success rate.
func SlotScore(slot Slot, goalTerms []string, r *rules.StandardizedRule) float64 {
	score := 0.0
	if keywordHit(slot.Keywords, r) {
		score += keywordWeight
	}
	if len(goalTerms) > 0 {
		hit := 0
		for _, term := range goalTerms {
			if slices.ContainsFunc(r.Outputs, func(e model.SymbolicElement) bool {
				return rules.ValueCompatible(e.Content, term)
			}) {
				hit++
			}
		}
		score += goalWeight * float64(hit) / float64(len(goalTerms))
	}
	score += confWeight*r.Confidence + successWeight*r.SuccessRate()
	return min(score, 1)
}

func keywordHit(keywords []string, r *rules.StandardizedRule) bool {
	for _, e := range slices.Concat(r.Inputs, r.Outputs) {
		c := strings.ToLower(e.Content)
		for _, k := range keywords {
			if strings.Contains(c, k) {
				return true
			}
		}
	}
	return false
}
