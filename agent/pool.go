package agent

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nstehr/eocatr-core/decision"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

// Request is one independent decision problem.
type Request struct {
	ID    string               `json:"id" yaml:"id"`
	State model.GameState      `json:"state" yaml:"state"`
	Goal  model.StructuredGoal `json:"goal" yaml:"goal"`
}

// Response pairs a request id with its decision.
type Response struct {
	ID     string          `json:"id" yaml:"id"`
	Result decision.Result `json:"result" yaml:"result"`
}

// Pool runs decision requests on a bounded number of goroutines. All
// workers of one batch share a read-only snapshot of the repository, or the
// fixed rule set given to WithRules.
type Pool struct {
	agent   *Agent
	workers int
	fixed   []rules.Rule
}

func NewPool(a *Agent, workers int) *Pool {
	return &Pool{agent: a, workers: max(workers, 1)}
}

// WithRules returns a pool that decides from rs instead of the repository.
func (p *Pool) WithRules(rs []rules.Rule) *Pool {
	cp := *p
	cp.fixed = rs
	return &cp
}

// Decide answers every request, in order. It only fails when ctx is
// cancelled before all requests were answered.
func (p *Pool) Decide(ctx context.Context, reqs []Request) ([]Response, error) {
	src := p.fixed
	if src == nil {
		src = p.agent.snapshotRules()
	}
	available, errs := rules.StandardizeAll(src)
	for _, err := range errs {
		slog.Warn("skipping malformed rule", "error", err)
	}

	out := make([]Response, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = Response{ID: req.ID, Result: p.agent.assembler.Decide(gctx, req.State, req.Goal, available)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slog.Debug("decision batch", "requests", len(reqs), "workers", p.workers, "rules", len(available))
	return out, nil
}
