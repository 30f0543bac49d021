package bridge

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/nstehr/eocatr-core/model"
)

// GoalEnv exposes a candidate final state to goal constraint expressions,
// e.g. `Has("food_found") && Num("health") >= 50`.
type GoalEnv struct {
	State model.GameState
}

// Has reports whether any section holds name with a truthy value.
func (e GoalEnv) Has(name string) bool {
	for _, m := range []map[string]any{e.State.Environment, e.State.Objects, e.State.Conditions} {
		if model.Truthy(m[name]) {
			return true
		}
	}
	return false
}

func (e GoalEnv) Cond(name string) any { return e.State.Conditions[name] }
func (e GoalEnv) Obj(name string) any  { return e.State.Objects[name] }
func (e GoalEnv) Env(name string) any  { return e.State.Environment[name] }

// Num returns the numeric value of name from conditions, then objects, then
// environment; 0 when absent or non-numeric.
func (e GoalEnv) Num(name string) float64 {
	for _, m := range []map[string]any{e.State.Conditions, e.State.Objects, e.State.Environment} {
		if f, ok := model.ToFloat(m[name]); ok {
			return f
		}
	}
	return 0
}

// LastAction is the most recent action applied during search.
func (e GoalEnv) LastAction() string {
	s, _ := e.State.Conditions[lastActionKey].(string)
	return s
}

type constraint struct {
	src     string
	program *vm.Program
}

// compileConstraints compiles each non-empty source. Bad expressions are
// logged and ignored.
func compileConstraints(srcs []string) []constraint {
	var out []constraint
	for _, src := range srcs {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		prog, err := expr.Compile(src, expr.Env(GoalEnv{}), expr.AsBool())
		if err != nil {
			slog.Warn("goal constraint ignored", "constraint", src, "error", err)
			continue
		}
		out = append(out, constraint{src: src, program: prog})
	}
	return out
}

func (c constraint) holds(s model.GameState) (bool, error) {
	out, err := vm.Run(c.program, GoalEnv{State: s})
	if err != nil {
		return false, fmt.Errorf("constraint %q: %w", c.src, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
