package observability

import (
	"sync"
)

// Metrics provides in-memory counters over dispatched actions. Enough for
// the ops API snapshot; nothing here is exported to an external system.
type Metrics struct {
	mu       sync.Mutex
	actions  map[string]int64
	failures map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		actions:  make(map[string]int64),
		failures: make(map[string]int64),
	}
}

// RecordAction increments the counter for a handled action.
func (m *Metrics) RecordAction(action string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[action]++
}

// RecordFailure increments the counter for an action that ended in an
// error, keyed by action and error code.
func (m *Metrics) RecordFailure(action, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[action+"|"+code]++
}

// Snapshot copies out the current counters.
func (m *Metrics) Snapshot() (actions, failures map[string]int64) {
	actions = map[string]int64{}
	failures = map[string]int64{}
	if m == nil {
		return actions, failures
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.actions {
		actions[k] = v
	}
	for k, v := range m.failures {
		failures[k] = v
	}
	return actions, failures
}
