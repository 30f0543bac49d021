// Package pattern holds fixed multi-slot templates that combine several rules
// into a plan when no direct chain can be found.
package pattern

// Kind names the control shape of a template.
type Kind string

const (
	Sequential  Kind = "sequential"
	Parallel    Kind = "parallel"
	Conditional Kind = "conditional"
	Loop        Kind = "loop"
	Fallback    Kind = "fallback"
)

// Link is a declared requirement between two slots.
type Link int

const (
	// Connects requires From's outputs to establish To's inputs.
	Connects Link = iota
	// SharesResult requires From and To to predict compatible results.
	SharesResult
)

// Slot is a named position in a template. Keywords hint at the kind of rule
// that fits; they are matched against rule element contents.
type Slot struct {
	Name     string
	Keywords []string
}

// Edge is a required relation between two slots. From and To may be the same
// slot (loops).
type Edge struct {
	From, To string
	Link     Link
}

// Template is a reusable combination of slots and required edges.
type Template struct {
	Name  string
	Kind  Kind
	Slots []Slot
	Edges []Edge
}

func (t Template) slotIndex(name string) int {
	for i, s := range t.Slots {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Keyword groups shared by the default templates.
var (
	senseWords   = []string{"observe", "look", "scan", "check", "search", "explore", "detect", "listen"}
	prepareWords = []string{"gather", "collect", "craft", "pick", "take", "equip", "prepare"}
	actWords     = []string{"eat", "drink", "attack", "hunt", "use", "build", "cook", "approach"}
	escapeWords  = []string{"flee", "retreat", "hide", "escape", "avoid", "run"}
	repeatWords  = []string{"gather", "collect", "search", "explore", "move", "walk"}
)

// defaultTemplates is the static template registry.
var defaultTemplates = []Template{
	{
		Name: "gather_then_use",
		Kind: Sequential,
		Slots: []Slot{
			{Name: "prepare", Keywords: prepareWords},
			{Name: "execute", Keywords: actWords},
		},
		Edges: []Edge{{From: "prepare", To: "execute", Link: Connects}},
	},
	{
		Name: "sense_prepare_act",
		Kind: Sequential,
		Slots: []Slot{
			{Name: "sense", Keywords: senseWords},
			{Name: "prepare", Keywords: prepareWords},
			{Name: "execute", Keywords: actWords},
		},
		Edges: []Edge{
			{From: "sense", To: "prepare", Link: Connects},
			{From: "prepare", To: "execute", Link: Connects},
		},
	},
	{
		Name: "parallel_pursuit",
		Kind: Parallel,
		Slots: []Slot{
			{Name: "left", Keywords: prepareWords},
			{Name: "right", Keywords: actWords},
		},
	},
	{
		Name: "check_then_act",
		Kind: Conditional,
		Slots: []Slot{
			{Name: "check", Keywords: senseWords},
			{Name: "act", Keywords: append(append([]string{}, actWords...), escapeWords...)},
		},
		Edges: []Edge{{From: "check", To: "act", Link: Connects}},
	},
	{
		Name: "repeat_until",
		Kind: Loop,
		Slots: []Slot{
			{Name: "body", Keywords: repeatWords},
		},
		Edges: []Edge{{From: "body", To: "body", Link: Connects}},
	},
	{
		Name: "try_or_escape",
		Kind: Fallback,
		Slots: []Slot{
			{Name: "primary", Keywords: actWords},
			{Name: "backup", Keywords: escapeWords},
		},
		Edges: []Edge{{From: "primary", To: "backup", Link: SharesResult}},
	},
}

// DefaultTemplates returns a copy of the built-in registry.
func DefaultTemplates() []Template {
	out := make([]Template, len(defaultTemplates))
	copy(out, defaultTemplates)
	return out
}
