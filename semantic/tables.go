package semantic

// Seed knowledge for the survival domain. These tables are read-only after
// package init; everything learned at runtime lives on Validator.

const (
	defaultLexical   = 0.5
	defaultCausal    = 0.3
	defaultIntensity = 0.5
	unknownField     = 0.5
	unrelatedField   = 0.4
)

type concept struct {
	field   string
	valence float64 // -1 harmful .. +1 beneficial
}

var semanticNetwork = map[string]concept{
	"forest":         {"environment", 0.1},
	"cave":           {"environment", 0.0},
	"river":          {"environment", 0.2},
	"open_field":     {"environment", 0.0},
	"mountain":       {"environment", -0.1},
	"tiger":          {"animal", -0.6},
	"bear":           {"animal", -0.6},
	"boar":           {"animal", -0.4},
	"wolf":           {"animal", -0.6},
	"predator":       {"animal", -0.7},
	"rabbit":         {"animal", 0.3},
	"approach":       {"movement", 0.0},
	"flee":           {"movement", 0.3},
	"retreat":        {"movement", 0.3},
	"hide":           {"movement", 0.2},
	"explore":        {"movement", 0.1},
	"move":           {"movement", 0.0},
	"spear":          {"weapon", 0.2},
	"stone":          {"weapon", 0.1},
	"torch":          {"weapon", 0.3},
	"attack":         {"combat", -0.2},
	"defend":         {"combat", 0.2},
	"injured":        {"health", -0.8},
	"healthy":        {"health", 0.8},
	"poisoned":       {"health", -0.8},
	"hydrated":       {"health", 0.7},
	"rest":           {"health", 0.4},
	"dead":           {"health", -1.0},
	"safe":           {"safety", 0.7},
	"safety_up":      {"safety", 0.7},
	"danger":         {"safety", -0.7},
	"berry":          {"food", 0.6},
	"plant":          {"food", 0.4},
	"mushroom":       {"food", 0.1},
	"eat":            {"food", 0.5},
	"food_found":     {"food", 0.8},
	"hungry":         {"food", -0.5},
	"gather":         {"foraging", 0.4},
	"search":         {"foraging", 0.2},
	"collect":        {"foraging", 0.4},
	"resource_found": {"foraging", 0.8},
	"nothing_found":  {"foraging", -0.3},
	"water":          {"water", 0.5},
	"drink":          {"water", 0.5},
	"thirsty":        {"water", -0.5},
}

// relatedFields holds compatibility between distinct fields (unordered).
var relatedFields = map[[2]string]float64{
	{"animal", "combat"}:      0.8,
	{"animal", "health"}:      0.7,
	{"animal", "safety"}:      0.7,
	{"animal", "movement"}:    0.6,
	{"animal", "weapon"}:      0.8,
	{"animal", "food"}:        0.6,
	{"combat", "health"}:      0.8,
	{"combat", "weapon"}:      0.9,
	{"combat", "safety"}:      0.6,
	{"health", "weapon"}:      0.6,
	{"health", "movement"}:    0.6,
	{"movement", "safety"}:    0.8,
	{"food", "foraging"}:      0.9,
	{"food", "health"}:        0.7,
	{"foraging", "movement"}:  0.6,
	{"health", "water"}:       0.8,
	{"foraging", "water"}:     0.6,
	{"animal", "environment"}: 0.6,
}

// lexicalSeed is the initial (content, content) compatibility, unordered.
var lexicalSeed = map[[2]string]float64{
	{"approach", "tiger"}:         0.4,
	{"attack", "tiger"}:           0.6,
	{"spear", "tiger"}:            0.7,
	{"flee", "tiger"}:             0.8,
	{"injured", "tiger"}:          0.8,
	{"approach", "injured"}:       0.6,
	{"forest", "tiger"}:           0.7,
	{"attack", "spear"}:           0.9,
	{"berry", "gather"}:           0.9,
	{"berry", "food_found"}:       0.9,
	{"food_found", "gather"}:      0.8,
	{"drink", "water"}:            0.9,
	{"drink", "hydrated"}:         0.9,
	{"plant", "search"}:           0.7,
	{"resource_found", "search"}:  0.8,
	{"retreat", "safety_up"}:      0.8,
	{"flee", "safe"}:              0.8,
	{"flee", "safety_up"}:         0.8,
	{"bear", "flee"}:              0.8,
	{"cave", "rest"}:              0.8,
	{"mushroom", "poisoned"}:      0.6,
	{"approach", "safe"}:          0.2,
	{"healthy", "injured"}:        0.1,
}

// directCausal maps cause → effect strength.
var directCausal = map[[2]string]float64{
	{"tiger", "injured"}:         0.8,
	{"bear", "injured"}:          0.8,
	{"wolf", "injured"}:          0.7,
	{"predator", "danger"}:       0.8,
	{"approach", "injured"}:      0.6,
	{"attack", "injured"}:        0.6,
	{"spear", "injured"}:         0.4,
	{"spear", "food_found"}:      0.5,
	{"flee", "safe"}:             0.8,
	{"flee", "safety_up"}:        0.8,
	{"retreat", "safety_up"}:     0.8,
	{"hide", "safe"}:             0.7,
	{"gather", "food_found"}:     0.8,
	{"berry", "food_found"}:      0.7,
	{"search", "resource_found"}: 0.7,
	{"plant", "resource_found"}:  0.6,
	{"drink", "hydrated"}:        0.9,
	{"water", "hydrated"}:        0.7,
	{"eat", "healthy"}:           0.5,
	{"rest", "healthy"}:          0.6,
	{"mushroom", "poisoned"}:     0.6,
	{"danger", "injured"}:        0.7,
}

// temporalPatterns maps earlier → later action strength.
var temporalPatterns = map[[2]string]float64{
	{"approach", "attack"}: 0.7,
	{"search", "gather"}:   0.7,
	{"gather", "eat"}:      0.7,
	{"flee", "rest"}:       0.5,
	{"explore", "search"}:  0.6,
}

// contradictions lists unordered pairs that cannot hold together.
var contradictions = map[[2]string]bool{
	{"approach", "flee"}:    true,
	{"approach", "retreat"}: true,
	{"attack", "flee"}:      true,
	{"attack", "hide"}:      true,
	{"healthy", "injured"}:  true,
	{"danger", "safe"}:      true,
	{"danger", "safety_up"}: true,
	{"eat", "hungry"}:       true,
	{"drink", "thirsty"}:    true,
	{"move", "rest"}:        true,
	{"dead", "healthy"}:     true,
}

// contextBuckets groups content by situational context for pragmatic scoring.
var contextBuckets = map[string][]string{
	"danger":   {"tiger", "bear", "boar", "wolf", "predator", "injured", "attack", "danger", "spear", "flee", "dead"},
	"resource": {"berry", "plant", "food_found", "gather", "search", "resource_found", "water", "drink", "eat", "mushroom", "collect", "hydrated"},
	"shelter":  {"cave", "rest", "hide", "safe", "safety_up", "retreat", "healthy"},
}

// preconditions lists, per action, the element types of which at least one
// must be present for the action to be feasible.
var preconditions = map[string][][]string{
	"approach": {{"object", "environment"}},
	"attack":   {{"object"}, {"tool", "characteristic"}},
	"gather":   {{"object"}},
	"collect":  {{"object"}},
	"eat":      {{"object"}},
	"drink":    {{"object", "environment"}},
	"search":   {{"environment", "object"}},
	"hide":     {{"environment"}},
}

var intensity = map[string]float64{
	"spear":    0.8,
	"attack":   0.8,
	"tiger":    0.7,
	"bear":     0.7,
	"injured":  0.6,
	"flee":     0.6,
	"approach": 0.5,
	"gather":   0.6,
	"search":   0.5,
	"drink":    0.6,
	"torch":    0.7,
	"dead":     0.9,
}

// positiveOutcomes is consulted when valence is unknown.
var positiveOutcomes = map[string]bool{
	"safe": true, "safety_up": true, "healthy": true, "food_found": true,
	"resource_found": true, "hydrated": true,
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
