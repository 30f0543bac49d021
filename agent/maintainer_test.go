package agent

import (
	"context"
	"testing"
	"time"
)

func TestMaintainerRunsOnObserve(t *testing.T) {
	a := learned(t, 4)
	st := &memStore{saved: make(chan struct{}, 1)}
	m := NewMaintainer(a, st, 2, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	m.Observe()
	m.Observe()
	select {
	case <-st.saved:
	case <-time.After(5 * time.Second):
		t.Fatal("maintenance did not run after two observations")
	}

	cancel()
	<-done

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.saves < 2 {
		t.Errorf("saves = %d, want a maintenance save and a final save", st.saves)
	}
	if len(st.recs) != a.Repository().Len() {
		t.Errorf("saved %d records, repository has %d", len(st.recs), a.Repository().Len())
	}
}

func TestMaintainerWithoutStore(t *testing.T) {
	a := New(DefaultConfig())
	m := NewMaintainer(a, nil, 0, 0)
	if m.every != 50 || m.interval != 5*time.Minute {
		t.Errorf("defaults = %d, %v", m.every, m.interval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()
	m.Trigger()
	m.Trigger()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("maintainer did not stop")
	}
}
