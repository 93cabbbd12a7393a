// Package metrics provides in-memory runtime statistics for a pipeline run.
package metrics

import (
	"math"
	"slices"
	"sync"
	"time"
)

// Operation names recorded by the pipeline.
const (
	OpEmbedBatch = "embed_batch"
	OpStoreWrite = "store_write"
	OpStage      = "stage"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Rows      int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Name        string
	Count       int64
	Rows        int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot is the run's statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Operations    []OperationSnapshot // sorted by name
}

// Op returns the snapshot for name, or nil if it was never recorded.
func (s Snapshot) Op(name string) *OperationSnapshot {
	for i := range s.Operations {
		if s.Operations[i].Name == name {
			return &s.Operations[i]
		}
	}
	return nil
}

// Collector aggregates in-memory runtime statistics.
// All methods are safe for concurrent use; a nil *Collector ignores records.
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

// Caller must hold the write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records one occurrence of op.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.Record(op, duration, 0)
}

// Record records one occurrence of op that processed rows rows.
func (c *Collector) Record(op string, duration time.Duration, rows int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.Rows += int64(rows)
	m.TotalTime += duration
	m.MinTime = min(m.MinTime, duration)
	m.MaxTime = max(m.MaxTime, duration)
}

// Time runs fn and records its duration under op.
func (c *Collector) Time(op string, rows int, fn func() error) error {
	start := time.Now()
	err := fn()
	c.Record(op, time.Since(start), rows)
	return err
}

func snapshotOp(name string, m *OperationMetrics) OperationSnapshot {
	return OperationSnapshot{
		Name:        name,
		Count:       m.Count,
		Rows:        m.Rows,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.ops))
	for name := range c.ops {
		names = append(names, name)
	}
	slices.Sort(names)

	snap := Snapshot{UptimeSeconds: time.Since(c.startTime).Seconds()}
	for _, name := range names {
		snap.Operations = append(snap.Operations, snapshotOp(name, c.ops[name]))
	}
	return snap
}
