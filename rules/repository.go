package rules

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Repository is the long-lived store of promoted rules. It only grows through
// Promote and Import and only shrinks through Remove, which pruning calls.
//
// The map is guarded by mu. Candidate statistics are mutated in place by the
// single writer (the agent); concurrent readers should work on a Snapshot.
type Repository struct {
	mu    sync.RWMutex
	rules map[string]*Candidate
	byKey map[string]string // Candidate.Key → id
}

func NewRepository() *Repository {
	return &Repository{
		rules: make(map[string]*Candidate),
		byKey: make(map[string]string),
	}
}

// Promote stores c, or merges its statistics into the existing rule with the
// same content. It returns the stored rule and whether it was new.
func (r *Repository) Promote(c *Candidate) (*Candidate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.SetStatus(Promoted)
	if id, ok := r.byKey[c.Key()]; ok {
		existing := r.rules[id]
		existing.merge(c)
		slog.Debug("rule re-promoted", "rule", id, "key", c.Key())
		return existing, false
	}
	r.rules[c.ID()] = c
	r.byKey[c.Key()] = c.ID()
	slog.Info("rule promoted", "rule", c.ID(), "key", c.Key(), "type", c.RuleType(), "confidence", c.Confidence())
	return c, true
}

func (r *Repository) Get(id string) (*Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return c, nil
}

// Contains reports whether a rule with id is stored.
func (r *Repository) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rules[id]
	return ok
}

func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// All returns every rule ordered by creation time, then id.
func (r *Repository) All() []*Candidate {
	r.mu.RLock()
	out := make([]*Candidate, 0, len(r.rules))
	for _, c := range r.rules {
		out = append(out, c)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Candidate) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}

// Rules returns All as the Rule interface.
func (r *Repository) Rules() []Rule {
	all := r.All()
	out := make([]Rule, len(all))
	for i, c := range all {
		out[i] = c
	}
	return out
}

// Top returns up to n rules by confidence, then score, then key.
func (r *Repository) Top(n int) []*Candidate {
	all := r.All()
	slices.SortStableFunc(all, func(a, b *Candidate) int {
		if c := cmp.Compare(b.Confidence(), a.Confidence()); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Score(), a.Score()); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// Remove deletes the given rules and returns how many were present.
func (r *Repository) Remove(ids ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		c, ok := r.rules[id]
		if !ok {
			continue
		}
		delete(r.rules, id)
		delete(r.byKey, c.Key())
		n++
	}
	return n
}

// Snapshot returns a deep copy safe to hand to worker goroutines.
func (r *Repository) Snapshot() *Repository {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &Repository{
		rules: make(map[string]*Candidate, len(r.rules)),
		byKey: make(map[string]string, len(r.byKey)),
	}
	for id, c := range r.rules {
		out.rules[id] = c.Clone()
	}
	for k, id := range r.byKey {
		out.byKey[k] = id
	}
	return out
}

// Query returns the rules matching an expr filter over RuleView, in All order.
func (r *Repository) Query(src string, now time.Time) ([]*Candidate, error) {
	q, err := CompileQuery(src)
	if err != nil {
		return nil, err
	}
	var out []*Candidate
	for _, c := range r.All() {
		ok, err := q.Match(newRuleView(c, now))
		if err != nil {
			slog.Warn("query error", "rule", c.ID(), "error", err)
			continue
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Export converts every rule to its persisted form.
func (r *Repository) Export() []Record {
	all := r.All()
	out := make([]Record, len(all))
	for i, c := range all {
		out[i] = c.Record()
	}
	return out
}

// Import adds records to the repository. Every record is converted before
// any is stored, so a malformed record leaves the repository unchanged.
func (r *Repository) Import(records []Record) (int, error) {
	cands := make([]*Candidate, 0, len(records))
	for _, rec := range records {
		c, err := CandidateFromRecord(rec)
		if err != nil {
			return 0, fmt.Errorf("import rule %q: %w", rec.ID, err)
		}
		cands = append(cands, c)
	}

	r.mu.Lock()
	added := 0
	for _, c := range cands {
		if id, ok := r.byKey[c.Key()]; ok {
			r.rules[id].merge(c)
			continue
		}
		r.rules[c.ID()] = c
		r.byKey[c.Key()] = c.ID()
		added++
	}
	r.mu.Unlock()

	slog.Info("rules imported", "records", len(records), "added", added)
	return added, nil
}
