package ipc

import (
	"github.com/nstehr/eocatr-core/decision"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

// Message types understood by the engine socket.
const (
	TypeHello      = "hello"
	TypeAck        = "ack"
	TypeError      = "error"
	TypeExperience = "experience"
	TypeDecide     = "decide"
	TypeDecision   = "decision"
	TypeTopRules   = "top_rules"
	TypeRules      = "rules"
)

type HelloMessage struct {
	Client  string `json:"client"`
	Version string `json:"version,omitempty"`
}

type AckMessage struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type ErrorMessage struct {
	Error string `json:"error"`
}

// ExperienceMessage carries one observed tuple. Historical overrides the
// engine's own history buffer when present.
type ExperienceMessage struct {
	Experience model.Experience    `json:"experience"`
	Historical []*model.Experience `json:"historical,omitempty"`
}

// ExperienceReply summarizes what an experience produced.
type ExperienceReply struct {
	Candidates int      `json:"candidates"`
	Promoted   []string `json:"promoted"`
}

type DecideMessage struct {
	RequestID string               `json:"request_id,omitempty"`
	State     model.GameState      `json:"state"`
	Goal      model.StructuredGoal `json:"goal"`
}

type DecisionMessage struct {
	RequestID string `json:"request_id,omitempty"`
	decision.Result
}

// TopRulesMessage asks for the n best rules, optionally filtered by an
// expression over rule fields.
type TopRulesMessage struct {
	N      int    `json:"n"`
	Filter string `json:"filter,omitempty"`
}

type RulesMessage struct {
	Rules []rules.Record `json:"rules"`
}
