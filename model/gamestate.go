package model

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// GameState is an ephemeral snapshot used by chain search. Values are
// usually bool, string or numeric; YAML input yields ints, JSON yields floats.
type GameState struct {
	Environment map[string]any `json:"environment,omitempty" yaml:"environment,omitempty"`
	Objects     map[string]any `json:"objects,omitempty" yaml:"objects,omitempty"`
	Conditions  map[string]any `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Timestamp   time.Time      `json:"timestamp" yaml:"timestamp"`
}

func NewGameState() GameState {
	return GameState{
		Environment: make(map[string]any),
		Objects:     make(map[string]any),
		Conditions:  make(map[string]any),
	}
}

// Clone copies the three maps (values are copied shallowly).
func (s GameState) Clone() GameState {
	out := NewGameState()
	maps.Copy(out.Environment, s.Environment)
	maps.Copy(out.Objects, s.Objects)
	maps.Copy(out.Conditions, s.Conditions)
	out.Timestamp = s.Timestamp
	return out
}

// Key is a canonical, order-independent encoding of the state's contents.
// Timestamps are excluded so that revisiting a state is detected.
func (s GameState) Key() string {
	var b strings.Builder
	writeSection(&b, "env", s.Environment)
	writeSection(&b, "obj", s.Objects)
	writeSection(&b, "cond", s.Conditions)
	return b.String()
}

func writeSection(b *strings.Builder, name string, m map[string]any) {
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range slices.Sorted(maps.Keys(m)) {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(b, "%s=%v", k, m[k])
	}
	b.WriteByte('}')
}

// Empty reports whether no slot holds any entry.
func (s GameState) Empty() bool {
	return len(s.Environment) == 0 && len(s.Objects) == 0 && len(s.Conditions) == 0
}

// Section returns the map backing the slot for t: Environment, Object, or
// Characteristic/Result/Action (conditions). Tool maps to Objects.
func (s GameState) Section(t ElementType) map[string]any {
	switch t {
	case Environment:
		return s.Environment
	case Object, Tool:
		return s.Objects
	default:
		return s.Conditions
	}
}

// Truthy interprets a state value as present/true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && !strings.EqualFold(x, "false")
	default:
		if f, ok := ToFloat(v); ok {
			return f != 0
		}
		return true
	}
}

// ToFloat converts the numeric kinds produced by JSON and YAML decoding.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	}
	return 0, false
}
