package mcp

import (
	"sync"
	"sync/atomic"
	"time"
)

// reloadOutcome describes the most recent reload attempt.
type reloadOutcome struct {
	at       time.Time
	took     time.Duration
	err      string
	records  int
	loadedAt time.Time
}

// ReloadMetrics counts reloads of the served API set. Safe for concurrent use.
type ReloadMetrics struct {
	total  atomic.Int64
	failed atomic.Int64

	mu   sync.Mutex
	last reloadOutcome
}

// MetricsSnapshot is a point-in-time copy of ReloadMetrics.
type MetricsSnapshot struct {
	LastReloadTime     time.Time `json:"last_reload_time"`
	LastReloadDuration int64     `json:"last_reload_duration_ms"`
	LastReloadError    string    `json:"last_reload_error,omitempty"`
	LoadedAt           time.Time `json:"loaded_at"`
	TotalReloads       int64     `json:"total_reloads"`
	FailedReloads      int64     `json:"failed_reloads"`
	RecordCount        int       `json:"record_count"`
}

// RecordReload records one reload attempt. records is only taken from a
// successful reload: after a failure the previous set is still served.
func (m *ReloadMetrics) RecordReload(took time.Duration, err error, records int) {
	m.total.Add(1)
	if err != nil {
		m.failed.Add(1)
	}

	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last.at = now
	m.last.took = took
	if err != nil {
		m.last.err = err.Error()
		return
	}
	m.last.err = ""
	m.last.records = records
	m.last.loadedAt = now
}

// Snapshot returns the current metrics.
func (m *ReloadMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	last := m.last
	m.mu.Unlock()

	return MetricsSnapshot{
		LastReloadTime:     last.at,
		LastReloadDuration: last.took.Milliseconds(),
		LastReloadError:    last.err,
		LoadedAt:           last.loadedAt,
		TotalReloads:       m.total.Load(),
		FailedReloads:      m.failed.Load(),
		RecordCount:        last.records,
	}
}
