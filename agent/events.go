package agent

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nstehr/eocatr-core/rules"
)

// EventKind identifies a significant change to the rule repository.
type EventKind string

const (
	EventRulePromoted   EventKind = "rule_promoted"
	EventRuleValidated  EventKind = "rule_validated"
	EventRulePruned     EventKind = "rule_pruned"
	EventConfidenceDrop EventKind = "confidence_drop"
	EventRepositoryLoss EventKind = "repository_loss"
)

const (
	defaultEventCapacity = 256

	// confidenceDropThreshold is the minimum fall in confidence reported
	// for a single maintenance pass.
	confidenceDropThreshold = 0.2

	// repositoryLossShare is the share of rules that must disappear in one
	// pass to report a repository-wide loss.
	repositoryLossShare = 0.5
	repositoryLossMin   = 4
)

// Event is a repository change detected while learning or by diffing
// snapshots around a maintenance pass.
type Event struct {
	Kind   EventKind `json:"kind"`
	RuleID string    `json:"rule_id,omitempty"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// ruleState captures the diffable fields of one rule.
type ruleState struct {
	key        string
	confidence float64
	validated  bool
}

// repoSnapshot is taken before and after maintenance and compared.
type repoSnapshot struct {
	rules map[string]ruleState
}

func takeSnapshot(repo *rules.Repository) repoSnapshot {
	all := repo.All()
	s := repoSnapshot{rules: make(map[string]ruleState, len(all))}
	for _, c := range all {
		s.rules[c.ID()] = ruleState{key: c.Key(), confidence: c.Confidence(), validated: c.Validated()}
	}
	return s
}

// detectEvents compares two snapshots. Promotions are reported as they
// happen, so only validations, removals and confidence drops are derived
// here, plus a single repository_loss event when most rules vanished at once.
func detectEvents(prev, cur repoSnapshot) []Event {
	now := time.Now()
	var events []Event
	removed := 0
	for id, p := range prev.rules {
		c, ok := cur.rules[id]
		if !ok {
			removed++
			events = append(events, Event{Kind: EventRulePruned, RuleID: id, Detail: p.key, At: now})
			continue
		}
		if c.validated && !p.validated {
			events = append(events, Event{Kind: EventRuleValidated, RuleID: id, Detail: c.key, At: now})
		}
		if p.confidence-c.confidence >= confidenceDropThreshold {
			events = append(events, Event{
				Kind:   EventConfidenceDrop,
				RuleID: id,
				Detail: fmt.Sprintf("%s: %.2f → %.2f", c.key, p.confidence, c.confidence),
				At:     now,
			})
		}
	}
	if n := len(prev.rules); removed >= repositoryLossMin && float64(removed) >= repositoryLossShare*float64(n) {
		events = append(events, Event{
			Kind:   EventRepositoryLoss,
			Detail: fmt.Sprintf("%d of %d rules removed", removed, n),
			At:     now,
		})
	}
	slices.SortFunc(events, func(a, b Event) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.RuleID, b.RuleID)
	})
	return events
}

// EventLog keeps the most recent events.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	cap    int
}

func NewEventLog(capacity int) *EventLog {
	return &EventLog{cap: max(capacity, 1)}
}

func (l *EventLog) Add(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	if over := len(l.events) - l.cap; over > 0 {
		l.events = l.events[over:]
	}
}

// Recent returns a copy of the retained events, oldest first.
func (l *EventLog) Recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// FormatEvents renders events one per line for CLI output.
func FormatEvents(events []Event) string {
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "- [%s] %s", e.Kind, e.Detail)
		if e.RuleID != "" {
			fmt.Fprintf(&b, " (%s)", e.RuleID)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
