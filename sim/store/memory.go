package store

import (
	"context"
	"sync"

	"github.com/inference-sim/loss-sim/sim"
)

// MemoryStore keeps series for the lifetime of the process. It backs tests
// and the --store=memory mode, which deduplicates within one invocation only.
type MemoryStore struct {
	mu     sync.Mutex
	series map[string][]sim.FinalizedStatistics
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[string][]sim.FinalizedStatistics)}
}

// Find returns the compatible series stored for model, oldest first.
func (m *MemoryStore) Find(_ context.Context, model sim.ModelDescription, minVersion string, minThreshold uint64) ([]sim.FinalizedStatistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Filter(m.series[Key(model)], minVersion, minThreshold), nil
}

// Insert appends one series for model.
func (m *MemoryStore) Insert(_ context.Context, model sim.ModelDescription, stats sim.FinalizedStatistics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key(model)
	m.series[key] = append(m.series[key], stats)
	return nil
}

// Len returns the number of stored series across all cells.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.series {
		n += len(s)
	}
	return n
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
