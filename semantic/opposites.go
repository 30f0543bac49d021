package semantic

// OppositeTable maps a concept to its opposite. Mirror generation and
// mirrored-outcome credit in pruning both consult it; swap in a table for a
// different domain with NewOpposites.
type OppositeTable interface {
	Opposite(content string) (string, bool)
}

// Opposites is a symmetric map-backed OppositeTable.
type Opposites map[string]string

// NewOpposites builds a symmetric table from pairs. A later pair overrides an
// earlier one for the same content.
func NewOpposites(pairs ...[2]string) Opposites {
	o := make(Opposites, 2*len(pairs))
	for _, p := range pairs {
		o[p[0]] = p[1]
		o[p[1]] = p[0]
	}
	return o
}

func (o Opposites) Opposite(content string) (string, bool) {
	s, ok := o[content]
	return s, ok
}

// DefaultOpposites returns the survival-domain table.
func DefaultOpposites() Opposites {
	return NewOpposites(
		[2]string{"approach", "flee"},
		[2]string{"attack", "retreat"},
		[2]string{"injured", "healthy"},
		[2]string{"safe", "danger"},
		[2]string{"safety_up", "safety_down"},
		[2]string{"food_found", "nothing_found"},
		[2]string{"hungry", "satiated"},
		[2]string{"thirsty", "hydrated"},
		[2]string{"rest", "explore"},
		[2]string{"gather", "discard"},
		[2]string{"day", "night"},
		[2]string{"dead", "alive"},
	)
}
