// Package bridge searches for chains of rules that lead from a start state to
// a goal state.
package bridge

import (
	"container/heap"
	"context"
	"log/slog"

	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

// Config bounds the search.
type Config struct {
	MaxDepth      int `yaml:"max_depth"`
	MaxExpansions int `yaml:"max_expansions"`
	CacheSize     int `yaml:"cache_size"`
}

func DefaultConfig() Config {
	return Config{MaxDepth: 5, MaxExpansions: 10000, CacheSize: 256}
}

// Chain is a successful search result.
type Chain struct {
	Rules    []*rules.StandardizedRule
	Cost     float64
	Final    model.GameState
	Expanded int
	Cached   bool
}

// IDs lists the chain's rule ids in order.
func (c Chain) IDs() []string {
	out := make([]string, len(c.Rules))
	for i, r := range c.Rules {
		out[i] = r.ID
	}
	return out
}

// Builder runs A* searches and remembers successful chains.
type Builder struct {
	cfg   Config
	cache *Cache
}

func NewBuilder(cfg Config) *Builder {
	d := DefaultConfig()
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = d.MaxDepth
	}
	if cfg.MaxExpansions <= 0 {
		cfg.MaxExpansions = d.MaxExpansions
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = d.CacheSize
	}
	return &Builder{cfg: cfg, cache: NewCache(cfg.CacheSize)}
}

func (b *Builder) Cache() *Cache { return b.cache }

// Build returns a chain of at least one rule from start to goal, consulting
// the cache first. Cached chains that mention a rule missing from available
// are evicted and recomputed.
func (b *Builder) Build(ctx context.Context, start model.GameState, goal model.StructuredGoal, available []*rules.StandardizedRule) (Chain, bool) {
	byID := make(map[string]*rules.StandardizedRule, len(available))
	for _, r := range available {
		byID[r.ID] = r
	}
	key := CacheKey(start, goal)
	if chain, ok := b.cache.Lookup(key, byID); ok {
		return chain, true
	}

	chain, ok := Search(ctx, start, goal, available, b.cfg)
	if ok {
		b.cache.Store(key, chain.IDs())
	}
	return chain, ok
}

type node struct {
	state model.GameState
	path  []int
	g, f  float64
	index int
}

// openSet is a min-heap on f, breaking ties by shorter paths.
type openSet []*node

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return len(o[i].path) < len(o[j].path)
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	return n
}

// Search runs A* over (state, rule path) nodes. Rules apply when all their
// inputs hold; each application costs ruleCost and the heuristic counts unmet
// targets. States are deduplicated by canonical key and paths are cut at
// cfg.MaxDepth, so the search terminates on cyclic rule sets. A cancelled
// context ends the search without a result.
func Search(ctx context.Context, start model.GameState, goal model.StructuredGoal, available []*rules.StandardizedRule, cfg Config) (Chain, bool) {
	if len(available) == 0 {
		return Chain{}, false
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	if cfg.MaxExpansions <= 0 {
		cfg.MaxExpansions = DefaultConfig().MaxExpansions
	}
	constraints := compileConstraints(goal.Constraints)
	target := goal.Target

	root := &node{state: start.Clone(), f: heuristic(start, target)}
	open := &openSet{root}
	best := map[string]float64{root.state.Key(): 0}
	expanded := 0

	for open.Len() > 0 && expanded < cfg.MaxExpansions {
		if ctx.Err() != nil {
			slog.Debug("bridge search cancelled", "expanded", expanded)
			return Chain{}, false
		}
		cur := heap.Pop(open).(*node)
		if len(cur.path) > 0 && satisfied(cur.state, target) && constraintsHold(constraints, cur.state) {
			chain := Chain{Cost: cur.g, Final: cur.state, Expanded: expanded}
			for _, i := range cur.path {
				chain.Rules = append(chain.Rules, available[i])
			}
			slog.Debug("bridge found", "rules", chain.IDs(), "cost", chain.Cost, "expanded", expanded)
			return chain, true
		}
		if len(cur.path) >= cfg.MaxDepth {
			continue
		}
		expanded++

		for i, r := range available {
			if !applicable(cur.state, r) {
				continue
			}
			next := apply(cur.state, r)
			g := cur.g + ruleCost(r)
			key := next.Key()
			if prev, seen := best[key]; seen && prev <= g {
				continue
			}
			best[key] = g
			path := make([]int, len(cur.path)+1)
			copy(path, cur.path)
			path[len(cur.path)] = i
			heap.Push(open, &node{state: next, path: path, g: g, f: g + heuristic(next, target)})
		}
	}
	return Chain{}, false
}

func constraintsHold(cs []constraint, s model.GameState) bool {
	for _, c := range cs {
		ok, err := c.holds(s)
		if err != nil {
			slog.Warn("goal constraint failed", "error", err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}
