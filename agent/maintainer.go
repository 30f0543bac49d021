package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Maintainer runs in the background, periodically validating and pruning
// the repository and optionally persisting it afterwards.
type Maintainer struct {
	agent    *Agent
	store    RuleStore
	every    int           // maintain after this many experiences
	interval time.Duration // and at least this often
	now      func() time.Time

	mu      sync.Mutex
	counter int
	ready   chan struct{}
}

// NewMaintainer creates a maintainer. A nil store disables persistence.
func NewMaintainer(a *Agent, store RuleStore, every int, interval time.Duration) *Maintainer {
	if every <= 0 {
		every = 50
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Maintainer{
		agent:    a,
		store:    store,
		every:    every,
		interval: interval,
		now:      time.Now,
		ready:    make(chan struct{}, 1),
	}
}

// Observe counts a processed experience. Signals readiness on every
// `every`-th call.
func (m *Maintainer) Observe() {
	m.mu.Lock()
	m.counter++
	shouldSignal := m.counter >= m.every
	if shouldSignal {
		m.counter = 0
	}
	m.mu.Unlock()

	if shouldSignal {
		m.Trigger()
	}
}

// Trigger requests a maintenance pass without blocking.
func (m *Maintainer) Trigger() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Start launches the maintenance loop. It blocks until ctx is cancelled, then
// runs a final save.
func (m *Maintainer) Start(ctx context.Context) {
	slog.Info("maintainer started", "every", m.every, "interval", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.save(context.WithoutCancel(ctx))
			slog.Info("maintainer stopped")
			return
		case <-ticker.C:
			m.run(ctx)
		case <-m.ready:
			m.run(ctx)
		}
	}
}

func (m *Maintainer) run(ctx context.Context) {
	rep := m.agent.Maintain(m.now())
	if len(rep.Events) > 0 {
		slog.Debug("repository events", "events", FormatEvents(rep.Events))
	}
	m.save(ctx)
}

func (m *Maintainer) save(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.agent.Save(ctx, m.store); err != nil {
		slog.Error("maintainer save failed", "error", err)
	}
}
