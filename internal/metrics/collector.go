// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Unit counts (accepted/rejected, only for chunk operations)
	TotalUnits    int64
	RejectedUnits int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	// Unit stats (nil if not applicable)
	TotalUnits    *int64
	RejectedUnits *int64
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	KeyLookup     *OperationSnapshot
	FileWrite     *OperationSnapshot
	Commit        *OperationSnapshot
	Rollback      *OperationSnapshot
	ImportChunk   *OperationSnapshot
	UploadChunk   *OperationSnapshot
}

// Operation names for the collector.
const (
	OpKeyLookup   = "key_lookup"
	OpFileWrite   = "file_write"
	OpCommit      = "commit"
	OpRollback    = "rollback"
	OpImportChunk = "import_chunk"
	OpUploadChunk = "upload_chunk"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordChunk records timing and unit counts for one chunk operation.
func (c *Collector) RecordChunk(op string, duration time.Duration, units, rejected int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalUnits += int64(units)
	m.RejectedUnits += int64(rejected)
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeUnits bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeUnits {
		total := m.TotalUnits
		rejected := m.RejectedUnits
		snap.TotalUnits = &total
		snap.RejectedUnits = &rejected
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		KeyLookup:     snapshotOp(c.ops[OpKeyLookup], false),
		FileWrite:     snapshotOp(c.ops[OpFileWrite], false),
		Commit:        snapshotOp(c.ops[OpCommit], false),
		Rollback:      snapshotOp(c.ops[OpRollback], false),
		ImportChunk:   snapshotOp(c.ops[OpImportChunk], true),
		UploadChunk:   snapshotOp(c.ops[OpUploadChunk], true),
	}
}
