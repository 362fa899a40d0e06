package observability

import (
	"sync"
	"time"
)

// Metrics accumulates in-process sweep counters for the operational API.
// The durable counterpart lives in the monitoring runs store; these reset
// with the process.
type Metrics struct {
	mu          sync.Mutex
	passes      int64
	skippedRuns int64
	processed   int64
	warnings    int64
	breaches    int64
	escalations int64
	failures    int64
	lastPass    time.Time
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Passes      int64     `json:"passes"`
	SkippedRuns int64     `json:"skipped_runs"`
	Processed   int64     `json:"processed"`
	Warnings    int64     `json:"warnings"`
	Breaches    int64     `json:"breaches"`
	Escalations int64     `json:"escalations"`
	Failures    int64     `json:"failures"`
	LastPass    time.Time `json:"last_pass"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordPass accumulates the counts of one completed sweep.
func (m *Metrics) RecordPass(processed, warnings, breaches, escalations, failures int, finished time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passes++
	m.processed += int64(processed)
	m.warnings += int64(warnings)
	m.breaches += int64(breaches)
	m.escalations += int64(escalations)
	m.failures += int64(failures)
	m.lastPass = finished
}

// RecordSkippedRun counts an invocation skipped because a pass was running.
func (m *Metrics) RecordSkippedRun() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skippedRuns++
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Passes:      m.passes,
		SkippedRuns: m.skippedRuns,
		Processed:   m.processed,
		Warnings:    m.warnings,
		Breaches:    m.breaches,
		Escalations: m.escalations,
		Failures:    m.failures,
		LastPass:    m.lastPass,
	}
}
