package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nstehr/eocatr-core/bloom"
	"github.com/nstehr/eocatr-core/bridge"
	"github.com/nstehr/eocatr-core/decision"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/pattern"
	"github.com/nstehr/eocatr-core/prune"
	"github.com/nstehr/eocatr-core/rules"
	"github.com/nstehr/eocatr-core/semantic"
)

// Config wires the pipeline stages.
type Config struct {
	Bloom       bloom.Config
	Prune       prune.Config
	Search      bridge.Config
	HistorySize int // experiences kept for evidence scoring
	PendingSize int // held candidates kept for re-assessment
	Opposites   semantic.OppositeTable
}

func DefaultConfig() Config {
	return Config{
		Bloom:       bloom.DefaultConfig(),
		Prune:       prune.DefaultConfig(),
		Search:      bridge.DefaultConfig(),
		HistorySize: 1000,
		PendingSize: 500,
	}
}

type entry struct {
	seq uint64
	exp *model.Experience
}

type pending struct {
	cand *rules.Candidate
	seen uint64 // last experience seq it was scored against
}

// Agent owns the learning pipeline: generate → validate → prune → search.
// Every mutation happens under mu, so the repository and the learned tables
// have a single writer. Decisions work on snapshots and never take mu for
// the duration of a search.
type Agent struct {
	mu        sync.Mutex
	semantic  *semantic.Validator
	bloom     *bloom.Generator
	pruner    *prune.Validator
	repo      *rules.Repository
	assembler *decision.Assembler

	cfg     Config
	seq     uint64
	history []entry
	fresh   []*model.Experience
	pending []pending
	events  *EventLog
}

func New(cfg Config) *Agent {
	d := DefaultConfig()
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = d.HistorySize
	}
	if cfg.PendingSize <= 0 {
		cfg.PendingSize = d.PendingSize
	}
	if cfg.Prune == (prune.Config{}) {
		cfg.Prune = d.Prune
	}
	if cfg.Opposites == nil {
		cfg.Opposites = semantic.DefaultOpposites()
	}
	sv := semantic.New()
	return &Agent{
		semantic:  sv,
		bloom:     bloom.NewGenerator(sv, cfg.Opposites, cfg.Bloom),
		pruner:    prune.New(cfg.Opposites, cfg.Prune),
		repo:      rules.NewRepository(),
		assembler: decision.NewAssembler(bridge.NewBuilder(cfg.Search), pattern.NewLibrary()),
		cfg:       cfg,
		events:    NewEventLog(defaultEventCapacity),
	}
}

// Repository exposes the rule store. Callers outside the agent should only
// read from it, preferably through Snapshot.
func (a *Agent) Repository() *rules.Repository { return a.repo }

func (a *Agent) Events() []Event { return a.events.Recent() }

// ProcessExperience blooms exp into candidates, scores each against
// historical (or the agent's own history when historical is nil) and
// promotes those that pass. Every generated candidate is returned as a copy
// with its status at return time; held candidates are kept for
// re-assessment in Maintain.
func (a *Agent) ProcessExperience(exp *model.Experience, historical []*model.Experience) []*rules.Candidate {
	if exp == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if exp.ID == "" {
		exp.ID = fmt.Sprintf("exp-%d", a.seq+1)
	}
	if historical == nil {
		historical = a.historyLocked()
	}

	cands, st := a.bloom.Generate(exp)
	var promoted []string
	for _, c := range cands {
		_, verdict := a.pruner.Assess(c, historical)
		switch verdict {
		case prune.Promote:
			stored, isNew := a.repo.Promote(c)
			if isNew {
				promoted = append(promoted, stored.ID())
				a.events.Add(Event{Kind: EventRulePromoted, RuleID: stored.ID(), Detail: stored.Key()})
			}
		case prune.Hold:
			a.holdLocked(c)
		}
	}

	if exp.HasResult() {
		a.semantic.LearnFromExperience(exp.Elements(), semantic.IsPositiveOutcome(*exp.Result))
	}
	a.recordLocked(exp)

	slog.Info("experience processed", "experience", exp.ID, "candidates", len(cands),
		"promoted", len(promoted), "contradictions", st.Contradictions, "rules", a.repo.Len())

	out := make([]*rules.Candidate, len(cands))
	for i, c := range cands {
		out[i] = c.Clone()
	}
	return out
}

func (a *Agent) historyLocked() []*model.Experience {
	out := make([]*model.Experience, len(a.history))
	for i, e := range a.history {
		out[i] = e.exp
	}
	return out
}

func (a *Agent) recordLocked(exp *model.Experience) {
	a.seq++
	a.history = append(a.history, entry{seq: a.seq, exp: exp})
	if over := len(a.history) - a.cfg.HistorySize; over > 0 {
		a.history = a.history[over:]
	}
	a.fresh = append(a.fresh, exp)
}

func (a *Agent) holdLocked(c *rules.Candidate) {
	a.pending = append(a.pending, pending{cand: c, seen: a.seq})
	if over := len(a.pending) - a.cfg.PendingSize; over > 0 {
		a.pending = a.pending[over:]
	}
}

// TopRules returns copies of the n highest-confidence rules.
func (a *Agent) TopRules(n int) []*rules.Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()
	top := a.repo.Top(n)
	for i, c := range top {
		top[i] = c.Clone()
	}
	return top
}

// QueryRules filters the repository with an expression over rule fields.
func (a *Agent) QueryRules(filter string, now time.Time) ([]*rules.Candidate, error) {
	a.mu.Lock()
	snap := a.repo.Snapshot()
	a.mu.Unlock()
	return snap.Query(filter, now)
}

// MakeDecision plans for goal from state. A nil available uses every
// repository rule.
func (a *Agent) MakeDecision(ctx context.Context, state model.GameState, goal model.StructuredGoal, available []rules.Rule) decision.Result {
	if available == nil {
		available = a.snapshotRules()
	}
	return a.assembler.MakeDecision(ctx, state, goal, available)
}

func (a *Agent) snapshotRules() []rules.Rule {
	a.mu.Lock()
	snap := a.repo.Snapshot()
	a.mu.Unlock()
	return snap.Rules()
}

// RecordOutcome feeds back whether executing the given rules succeeded.
// Unknown ids are ignored.
func (a *Agent) RecordOutcome(ids []string, success bool) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, id := range ids {
		c, err := a.repo.Get(id)
		if err != nil {
			continue
		}
		c.RecordUsage(success)
		n++
	}
	return n
}

// MaintenanceReport summarizes one Maintain call.
type MaintenanceReport struct {
	Validation prune.PhaseReport
	Pruning    prune.PhaseReport
	Reassessed int
	Promoted   int
	Events     []Event
}

// Maintain re-assesses held candidates against experiences they have not
// seen, then runs the validation phase over experiences observed since the
// last call and the pruning phase.
func (a *Agent) Maintain(now time.Time) MaintenanceReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	before := takeSnapshot(a.repo)
	var rep MaintenanceReport

	kept := a.pending[:0]
	for _, p := range a.pending {
		unseen := a.since(p.seen)
		if len(unseen) == 0 {
			kept = append(kept, p)
			continue
		}
		rep.Reassessed++
		_, verdict := a.pruner.Assess(p.cand, unseen)
		switch verdict {
		case prune.Promote:
			if _, isNew := a.repo.Promote(p.cand); isNew {
				rep.Promoted++
			}
		case prune.Hold:
			p.seen = a.seq
			kept = append(kept, p)
		}
	}
	clear(a.pending[len(kept):])
	a.pending = kept

	rep.Validation = a.pruner.ValidationPhase(a.repo, a.fresh)
	a.fresh = nil
	rep.Pruning = a.pruner.PruningPhase(a.repo, now)

	rep.Events = detectEvents(before, takeSnapshot(a.repo))
	for _, e := range rep.Events {
		a.events.Add(e)
	}
	slog.Info("maintenance", "reassessed", rep.Reassessed, "promoted", rep.Promoted,
		"validated", rep.Validation.Validated, "removed", len(rep.Pruning.Removed), "rules", a.repo.Len())
	return rep
}

// since returns history entries newer than seq.
func (a *Agent) since(seq uint64) []*model.Experience {
	var out []*model.Experience
	for _, e := range a.history {
		if e.seq > seq {
			out = append(out, e.exp)
		}
	}
	return out
}

// Pending is the number of held candidates.
func (a *Agent) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// RuleStore persists repository records.
type RuleStore interface {
	SaveRules(ctx context.Context, recs []rules.Record) error
	LoadRules(ctx context.Context) ([]rules.Record, error)
}

// Save writes every rule to st.
func (a *Agent) Save(ctx context.Context, st RuleStore) error {
	a.mu.Lock()
	recs := a.repo.Export()
	a.mu.Unlock()
	if err := st.SaveRules(ctx, recs); err != nil {
		return fmt.Errorf("save rules: %w", err)
	}
	slog.Info("rules saved", "rules", len(recs))
	return nil
}

// Load merges the rules in st into the repository.
func (a *Agent) Load(ctx context.Context, st RuleStore) (int, error) {
	recs, err := st.LoadRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("load rules: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.repo.Import(recs)
}
