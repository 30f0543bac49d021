package rules

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Query is a boolean filter over RuleView compiled to expr bytecode.
type Query struct {
	Src     string
	program *vm.Program
}

// CompileQuery compiles src against RuleView. An empty source matches every rule.
func CompileQuery(src string) (*Query, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		src = "true"
	}
	prog, err := expr.Compile(src, expr.Env(RuleView{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile query %q: %w", src, err)
	}
	return &Query{Src: src, program: prog}, nil
}

// Match runs the query against one rule view.
func (q *Query) Match(v RuleView) (bool, error) {
	out, err := vm.Run(q.program, v)
	if err != nil {
		return false, fmt.Errorf("run query %q: %w", q.Src, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
