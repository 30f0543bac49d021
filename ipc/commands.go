package ipc

// Commands a client issues after acting on a decision.
const (
	TypeOutcome  = "outcome"
	TypeMaintain = "maintain"
)

// OutcomeCommand reports whether executing the listed rules worked.
type OutcomeCommand struct {
	RuleIDs []string `json:"rule_ids"`
	Success bool     `json:"success"`
}

// MaintainCommand triggers a validation and pruning pass.
type MaintainCommand struct{}

type MaintainReply struct {
	Validated int      `json:"validated"`
	Removed   []string `json:"removed"`
	Rules     int      `json:"rules"`
}
