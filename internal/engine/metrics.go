package engine

import (
	"sync"
	"time"
)

// CycleMetrics tracks classify cycle statistics. All methods are safe for
// concurrent use.
type CycleMetrics struct {
	lastCycleTime     time.Time
	lastCycleDuration time.Duration
	lastCycleError    string
	totalCycles       int64
	appliedCycles     int64
	discardedCycles   int64
	failedCycles      int64
	edits             int64
	acknowledgements  int64
	mu                sync.RWMutex
}

// MetricsSnapshot is an immutable copy of CycleMetrics.
type MetricsSnapshot struct {
	LastCycleTime     time.Time     `json:"last_cycle_time"`
	LastCycleDuration time.Duration `json:"last_cycle_duration_ms"`
	LastCycleError    string        `json:"last_cycle_error,omitempty"`
	TotalCycles       int64         `json:"total_cycles"`
	AppliedCycles     int64         `json:"applied_cycles"`
	DiscardedCycles   int64         `json:"discarded_cycles"`
	FailedCycles      int64         `json:"failed_cycles"`
	Edits             int64         `json:"edits"`
	Acknowledgements  int64         `json:"acknowledgements"`
}

// NewCycleMetrics creates zeroed metrics.
func NewCycleMetrics() *CycleMetrics {
	return &CycleMetrics{}
}

// cycleOutcome is how a cycle ended.
type cycleOutcome int

const (
	outcomeApplied cycleOutcome = iota
	outcomeDiscarded
	outcomeFailed
)

// recordCycle records the end of a classify cycle.
func (m *CycleMetrics) recordCycle(duration time.Duration, outcome cycleOutcome, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCycles++
	switch outcome {
	case outcomeApplied:
		m.appliedCycles++
		m.lastCycleTime = time.Now()
		m.lastCycleDuration = duration
		m.lastCycleError = ""
	case outcomeDiscarded:
		// superseded cycles leave no trace besides the counter
		m.discardedCycles++
	case outcomeFailed:
		m.failedCycles++
		m.lastCycleTime = time.Now()
		m.lastCycleDuration = duration
		if err != nil {
			m.lastCycleError = err.Error()
		}
	}
}

func (m *CycleMetrics) recordEdit() {
	m.mu.Lock()
	m.edits++
	m.mu.Unlock()
}

func (m *CycleMetrics) recordAcknowledgement() {
	m.mu.Lock()
	m.acknowledgements++
	m.mu.Unlock()
}

// Snapshot returns the current values.
func (m *CycleMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		LastCycleTime:     m.lastCycleTime,
		LastCycleDuration: m.lastCycleDuration,
		LastCycleError:    m.lastCycleError,
		TotalCycles:       m.totalCycles,
		AppliedCycles:     m.appliedCycles,
		DiscardedCycles:   m.discardedCycles,
		FailedCycles:      m.failedCycles,
		Edits:             m.edits,
		Acknowledgements:  m.acknowledgements,
	}
}
