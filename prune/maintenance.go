package prune

import (
	"log/slog"
	"time"

	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

// PhaseReport summarizes one maintenance pass.
type PhaseReport struct {
	Rules     int
	Evaluated int
	Validated int
	Removed   []string
}

// ValidationPhase re-scores every repository rule against newly observed
// experiences and marks as validated those with score ≥ ValidatedScore,
// at least MinSupport supports and more supports than rejections.
func (v *Validator) ValidationPhase(repo *rules.Repository, fresh []*model.Experience) PhaseReport {
	all := repo.All()
	rep := PhaseReport{Rules: len(all)}
	for _, c := range all {
		ev := v.Evaluate(c, fresh)
		if ev.Relevant > 0 {
			rep.Evaluated++
		}
		c.SetScore(TotalScore(c))
		if !c.Validated() && c.Score() >= v.cfg.ValidatedScore &&
			c.Support() >= v.cfg.MinSupport && c.Support() > c.Rejection() {
			c.MarkValidated()
			rep.Validated++
		}
	}
	slog.Info("validation phase", "rules", rep.Rules, "evaluated", rep.Evaluated, "validated", rep.Validated, "experiences", len(fresh))
	return rep
}

// PruningPhase removes rules that score below PruneScore, rules older than
// MaxAge scoring below AgedScore, and rules with more than MinRejections
// rejections outnumbering their supports two to one.
func (v *Validator) PruningPhase(repo *rules.Repository, now time.Time) PhaseReport {
	all := repo.All()
	rep := PhaseReport{Rules: len(all)}
	for _, c := range all {
		if reason := v.pruneReason(c, now); reason != "" {
			rep.Removed = append(rep.Removed, c.ID())
			slog.Info("rule pruned", "rule", c.ID(), "key", c.Key(), "reason", reason, "score", c.Score())
		}
	}
	repo.Remove(rep.Removed...)
	return rep
}

func (v *Validator) pruneReason(c *rules.Candidate, now time.Time) string {
	switch {
	case c.Score() < v.cfg.PruneScore:
		return "low score"
	case c.Age(now) > v.cfg.MaxAge && c.Score() < v.cfg.AgedScore:
		return "aged"
	case c.Rejection() > 2*c.Support() && c.Rejection() > v.cfg.MinRejections:
		return "rejected"
	}
	return ""
}
