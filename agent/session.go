package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nstehr/eocatr-core/ipc"
	"github.com/nstehr/eocatr-core/rules"
)

const defaultTopRules = 10

// Session serves one client connection against a shared agent.
type Session struct {
	Conn       *ipc.Connection
	Agent      *Agent
	Maintainer *Maintainer
	Client     string
	ctx        context.Context
}

// NewSession registers every handler on conn. m may be nil.
func NewSession(ctx context.Context, conn *ipc.Connection, a *Agent, m *Maintainer) *Session {
	s := &Session{Conn: conn, Agent: a, Maintainer: m, ctx: ctx}
	conn.RegisterHandler(ipc.TypeHello, s.HandleHello)
	conn.RegisterHandler(ipc.TypeExperience, s.HandleExperience)
	conn.RegisterHandler(ipc.TypeDecide, s.HandleDecide)
	conn.RegisterHandler(ipc.TypeTopRules, s.HandleTopRules)
	conn.RegisterHandler(ipc.TypeOutcome, s.HandleOutcome)
	conn.RegisterHandler(ipc.TypeMaintain, s.HandleMaintain)
	return s
}

// HandleHello completes the handshake so the client knows the engine is ready.
func (s *Session) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := env.Decode(&hello); err != nil {
		return nil, err
	}

	s.Client = hello.Client
	s.Conn.Client = hello.Client
	slog.Info("client identified", "client", s.Client, "version", hello.Version)

	return reply(ipc.TypeAck, ipc.AckMessage{Status: "ok"})
}

func (s *Session) HandleExperience(env ipc.Envelope) (*ipc.Envelope, error) {
	var msg ipc.ExperienceMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}
	exp := msg.Experience
	exp.Normalize()

	cands := s.Agent.ProcessExperience(&exp, msg.Historical)
	out := ipc.ExperienceReply{Candidates: len(cands), Promoted: []string{}}
	for _, c := range cands {
		if c.Status() == rules.Promoted {
			out.Promoted = append(out.Promoted, c.ID())
		}
	}
	if s.Maintainer != nil {
		s.Maintainer.Observe()
	}
	return reply(ipc.TypeAck, out)
}

func (s *Session) HandleDecide(env ipc.Envelope) (*ipc.Envelope, error) {
	var msg ipc.DecideMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}
	res := s.Agent.MakeDecision(s.ctx, msg.State, msg.Goal, nil)
	return reply(ipc.TypeDecision, ipc.DecisionMessage{RequestID: msg.RequestID, Result: res})
}

func (s *Session) HandleTopRules(env ipc.Envelope) (*ipc.Envelope, error) {
	var msg ipc.TopRulesMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}
	n := msg.N
	if n <= 0 {
		n = defaultTopRules
	}

	var cands []*rules.Candidate
	if msg.Filter != "" {
		matched, err := s.Agent.QueryRules(msg.Filter, time.Now())
		if err != nil {
			return nil, err
		}
		cands = matched[:min(n, len(matched))]
	} else {
		cands = s.Agent.TopRules(n)
	}

	out := ipc.RulesMessage{Rules: make([]rules.Record, len(cands))}
	for i, c := range cands {
		out.Rules[i] = c.Record()
	}
	return reply(ipc.TypeRules, out)
}

func (s *Session) HandleOutcome(env ipc.Envelope) (*ipc.Envelope, error) {
	var cmd ipc.OutcomeCommand
	if err := env.Decode(&cmd); err != nil {
		return nil, err
	}
	n := s.Agent.RecordOutcome(cmd.RuleIDs, cmd.Success)
	return reply(ipc.TypeAck, ipc.AckMessage{Status: "ok", Detail: fmt.Sprintf("%d rules updated", n)})
}

func (s *Session) HandleMaintain(ipc.Envelope) (*ipc.Envelope, error) {
	rep := s.Agent.Maintain(time.Now())
	return reply(ipc.TypeAck, ipc.MaintainReply{
		Validated: rep.Validation.Validated,
		Removed:   append([]string{}, rep.Pruning.Removed...),
		Rules:     s.Agent.Repository().Len(),
	})
}

func reply(msgType string, data any) (*ipc.Envelope, error) {
	env, err := ipc.NewEnvelope(msgType, data)
	if err != nil {
		return nil, err
	}
	return &env, nil
}
