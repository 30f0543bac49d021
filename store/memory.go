package store

import (
	"context"
	"slices"
	"sync"

	"github.com/nstehr/eocatr-core/rules"
)

// MemoryStore keeps the last saved rule set in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []rules.Record
}

func NewMemory() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) SaveRules(_ context.Context, recs []rules.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = slices.Clone(recs)
	return nil
}

func (m *MemoryStore) LoadRules(context.Context) ([]rules.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.recs), nil
}

func (m *MemoryStore) Close() error { return nil }
