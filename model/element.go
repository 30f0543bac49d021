package model

import (
	"fmt"
	"slices"
	"strings"
)

// ElementType is one of the six EOCATR slots.
type ElementType int

const (
	Environment ElementType = iota
	Object
	Characteristic
	Action
	Tool
	Result
)

var elementNames = [...]string{"environment", "object", "characteristic", "action", "tool", "result"}
var elementLetters = [...]string{"E", "O", "C", "A", "T", "R"}

// NonResultTypes lists the five condition slots in canonical E-O-C-A-T order.
var NonResultTypes = []ElementType{Environment, Object, Characteristic, Action, Tool}

// AllTypes lists every slot in canonical E-O-C-A-T-R order.
var AllTypes = []ElementType{Environment, Object, Characteristic, Action, Tool, Result}

func (t ElementType) Valid() bool { return t >= Environment && t <= Result }

func (t ElementType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ElementType(%d)", int(t))
	}
	return elementNames[t]
}

// Letter returns the single-letter EOCATR abbreviation.
func (t ElementType) Letter() string {
	if !t.Valid() {
		return "?"
	}
	return elementLetters[t]
}

// Controllable reports whether the agent chooses this factor (Action or Tool).
func (t ElementType) Controllable() bool { return t == Action || t == Tool }

// Contextual reports whether this factor describes the situation (E, O or C).
func (t ElementType) Contextual() bool {
	return t == Environment || t == Object || t == Characteristic
}

func (t ElementType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid element type %d", int(t))
	}
	return []byte(elementNames[t]), nil
}

func (t *ElementType) UnmarshalText(b []byte) error {
	parsed, err := ParseElementType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseElementType accepts the full slot name or its letter, case-insensitively.
// "condition" is accepted as an alias for Characteristic, matching the
// signature vocabulary.
func ParseElementType(s string) (ElementType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range elementNames {
		if s == name || s == strings.ToLower(elementLetters[i]) {
			return ElementType(i), nil
		}
	}
	if s == "condition" {
		return Characteristic, nil
	}
	return 0, fmt.Errorf("unknown element type %q", s)
}

// SymbolicElement is an immutable typed symbol. Construct it with NewElement so
// that content is normalized and tags are sorted and deduplicated.
type SymbolicElement struct {
	Type             ElementType `json:"type" yaml:"type"`
	Content          string      `json:"content" yaml:"content"`
	AbstractionLevel int         `json:"abstraction_level,omitempty" yaml:"abstraction_level,omitempty"`
	SemanticTags     []string    `json:"semantic_tags,omitempty" yaml:"semantic_tags,omitempty"`
}

func NewElement(t ElementType, content string, level int, tags ...string) SymbolicElement {
	return SymbolicElement{
		Type:             t,
		Content:          normalizeContent(content),
		AbstractionLevel: level,
		SemanticTags:     normalizeTags(tags),
	}
}

// Key identifies an element by slot and content, e.g. "A:approach".
func (e SymbolicElement) Key() string {
	return e.Type.Letter() + ":" + e.Content
}

func (e SymbolicElement) String() string { return e.Key() }

func (e SymbolicElement) HasTag(tag string) bool {
	return slices.Contains(e.SemanticTags, tag)
}

// WithContent returns a copy carrying new content and the given extra tag.
func (e SymbolicElement) WithContent(content, tag string) SymbolicElement {
	tags := append(slices.Clone(e.SemanticTags), tag)
	return NewElement(e.Type, content, e.AbstractionLevel, tags...)
}

// Equal compares type and content only.
func (e SymbolicElement) Equal(o SymbolicElement) bool {
	return e.Type == o.Type && e.Content == o.Content
}

func normalizeContent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = normalizeContent(t)
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
