package model

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Experience is one EOCATR tuple observed by the simulation layer. Every slot
// is optional; an experience without a Result yields no rules.
type Experience struct {
	ID             string           `json:"id" yaml:"id"`
	Environment    *SymbolicElement `json:"environment,omitempty" yaml:"environment,omitempty"`
	Object         *SymbolicElement `json:"object,omitempty" yaml:"object,omitempty"`
	Characteristic *SymbolicElement `json:"characteristic,omitempty" yaml:"characteristic,omitempty"`
	Action         *SymbolicElement `json:"action,omitempty" yaml:"action,omitempty"`
	Tool           *SymbolicElement `json:"tool,omitempty" yaml:"tool,omitempty"`
	Result         *SymbolicElement `json:"result,omitempty" yaml:"result,omitempty"`
	Confidence     float64          `json:"confidence" yaml:"confidence"`
	Timestamp      time.Time        `json:"timestamp" yaml:"timestamp"`
}

// Get returns the element in slot t, or nil.
func (x *Experience) Get(t ElementType) *SymbolicElement {
	switch t {
	case Environment:
		return x.Environment
	case Object:
		return x.Object
	case Characteristic:
		return x.Characteristic
	case Action:
		return x.Action
	case Tool:
		return x.Tool
	case Result:
		return x.Result
	}
	return nil
}

// Set stores e in the slot named by its type.
func (x *Experience) Set(e SymbolicElement) {
	p := &e
	switch e.Type {
	case Environment:
		x.Environment = p
	case Object:
		x.Object = p
	case Characteristic:
		x.Characteristic = p
	case Action:
		x.Action = p
	case Tool:
		x.Tool = p
	case Result:
		x.Result = p
	}
}

// Elements returns the present elements in E-O-C-A-T-R order.
func (x *Experience) Elements() []SymbolicElement {
	var out []SymbolicElement
	for _, t := range AllTypes {
		if e := x.Get(t); e != nil {
			out = append(out, *e)
		}
	}
	return out
}

// Conditions returns the present non-result elements in E-O-C-A-T order.
func (x *Experience) Conditions() []SymbolicElement {
	var out []SymbolicElement
	for _, t := range NonResultTypes {
		if e := x.Get(t); e != nil {
			out = append(out, *e)
		}
	}
	return out
}

func (x *Experience) Types() []ElementType {
	var out []ElementType
	for _, t := range AllTypes {
		if x.Get(t) != nil {
			out = append(out, t)
		}
	}
	return out
}

func (x *Experience) HasResult() bool { return x.Result != nil }

// Normalize forces each element's type to match its slot and normalizes
// content, so hand-written input files may omit the type field.
func (x *Experience) Normalize() {
	for _, t := range AllTypes {
		if e := x.Get(t); e != nil {
			x.Set(NewElement(t, e.Content, e.AbstractionLevel, e.SemanticTags...))
		}
	}
	x.Confidence = clamp01(x.Confidence)
}

// LoadExperiences decodes a YAML list (or JSON array, which YAML accepts) of
// experiences and normalizes each one. Experiences without an id get a
// random one, so files loaded separately never collide.
func LoadExperiences(r io.Reader) ([]*Experience, error) {
	var exps []*Experience
	if err := yaml.NewDecoder(r).Decode(&exps); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode experiences: %w", err)
	}
	for i, x := range exps {
		if x == nil {
			return nil, fmt.Errorf("experience %d is empty", i)
		}
		x.Normalize()
		if x.ID == "" {
			x.ID = uuid.NewString()
		}
	}
	return exps, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
