package stats

import (
	"context"
	"sync"
)

// Totals holds the per-key decision counts kept by Memory.
type Totals struct {
	Allowed int64
	Denied  int64
}

// Memory is an in-process Recorder. It keeps one pair of counters per
// (operation, client) pair and is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	totals map[string]Totals
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{totals: make(map[string]Totals)}
}

// Record implements Recorder. It never fails.
func (m *Memory) Record(_ context.Context, ev Event) error {
	key := ev.Operation + "|" + ev.Client

	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.totals[key]
	if ev.Allowed {
		t.Allowed++
	} else {
		t.Denied++
	}
	m.totals[key] = t
	return nil
}

// Totals returns the counts recorded for one (operation, client) pair.
func (m *Memory) Totals(operation, client string) Totals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[operation+"|"+client]
}

// Snapshot copies all recorded totals, keyed by "operation|client".
func (m *Memory) Snapshot() map[string]Totals {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Totals, len(m.totals))
	for k, v := range m.totals {
		out[k] = v
	}
	return out
}
