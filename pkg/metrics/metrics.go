// Package metrics collects engine counters and exposes them in the
// Prometheus text format.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector accumulates real-time counters for the transaction engine.
// Counters are atomics; recording is safe from any goroutine.
type Collector struct {
	// Transaction lifecycle
	txnsBegun     uint64
	txnsCommitted uint64
	txnsAborted   uint64
	conflicts     uint64

	// Operations
	inserts       uint64
	updates       uint64
	updatesFailed uint64
	deletes       uint64
	deletesFailed uint64
	selects       uint64

	// Garbage collection
	gcRuns             uint64
	versionsReclaimed  uint64

	// Engine gauges, refreshed by the database after begin, commit, abort
	// and garbage collection
	activeTxns   uint64
	liveKeys     uint64
	liveVersions uint64

	commitTimings *TimingHistogram

	startTime time.Time
}

// TimingHistogram buckets commit durations for histogram exposition.
type TimingHistogram struct {
	bucket0_1ms      uint64 // 0-1ms
	bucket1_10ms     uint64 // 1-10ms
	bucket10_100ms   uint64 // 10-100ms
	bucket100_1000ms uint64 // 100ms-1s
	bucket1000ms     uint64 // >1s

	mu    sync.Mutex
	count uint64
	sum   time.Duration
}

// NewCollector creates a collector with the uptime clock started.
func NewCollector() *Collector {
	return &Collector{
		commitTimings: &TimingHistogram{},
		startTime:     time.Now(),
	}
}

// RecordBegin records a transaction start.
func (c *Collector) RecordBegin() {
	atomic.AddUint64(&c.txnsBegun, 1)
}

// RecordCommit records a successful commit and its duration.
func (c *Collector) RecordCommit(duration time.Duration) {
	atomic.AddUint64(&c.txnsCommitted, 1)
	c.commitTimings.Record(duration)
}

// RecordAbort records an abort, explicit or conflict-driven.
func (c *Collector) RecordAbort() {
	atomic.AddUint64(&c.txnsAborted, 1)
}

// RecordConflict records a commit rejected by conflict detection.
func (c *Collector) RecordConflict() {
	atomic.AddUint64(&c.conflicts, 1)
}

// RecordInsert records a buffered insert.
func (c *Collector) RecordInsert() {
	atomic.AddUint64(&c.inserts, 1)
}

// RecordUpdate records an update attempt.
func (c *Collector) RecordUpdate(success bool) {
	atomic.AddUint64(&c.updates, 1)
	if !success {
		atomic.AddUint64(&c.updatesFailed, 1)
	}
}

// RecordDelete records a delete attempt.
func (c *Collector) RecordDelete(success bool) {
	atomic.AddUint64(&c.deletes, 1)
	if !success {
		atomic.AddUint64(&c.deletesFailed, 1)
	}
}

// RecordSelect records a select.
func (c *Collector) RecordSelect() {
	atomic.AddUint64(&c.selects, 1)
}

// RecordGC records a garbage collection pass and how many versions it
// reclaimed.
func (c *Collector) RecordGC(reclaimed int) {
	atomic.AddUint64(&c.gcRuns, 1)
	atomic.AddUint64(&c.versionsReclaimed, uint64(reclaimed))
}

// SetGauges refreshes the engine gauges.
func (c *Collector) SetGauges(activeTxns, liveKeys, liveVersions int) {
	atomic.StoreUint64(&c.activeTxns, uint64(activeTxns))
	atomic.StoreUint64(&c.liveKeys, uint64(liveKeys))
	atomic.StoreUint64(&c.liveVersions, uint64(liveVersions))
}

// Record adds one observation to the histogram.
func (h *TimingHistogram) Record(d time.Duration) {
	switch {
	case d < time.Millisecond:
		atomic.AddUint64(&h.bucket0_1ms, 1)
	case d < 10*time.Millisecond:
		atomic.AddUint64(&h.bucket1_10ms, 1)
	case d < 100*time.Millisecond:
		atomic.AddUint64(&h.bucket10_100ms, 1)
	case d < time.Second:
		atomic.AddUint64(&h.bucket100_1000ms, 1)
	default:
		atomic.AddUint64(&h.bucket1000ms, 1)
	}

	h.mu.Lock()
	h.count++
	h.sum += d
	h.mu.Unlock()
}

// Snapshot is a point-in-time copy of all counters, used by the stats
// endpoint and tests.
type Snapshot struct {
	TxnsBegun         uint64 `json:"transactionsBegun"`
	TxnsCommitted     uint64 `json:"transactionsCommitted"`
	TxnsAborted       uint64 `json:"transactionsAborted"`
	Conflicts         uint64 `json:"writeConflicts"`
	Inserts           uint64 `json:"inserts"`
	Updates           uint64 `json:"updates"`
	UpdatesFailed     uint64 `json:"updatesFailed"`
	Deletes           uint64 `json:"deletes"`
	DeletesFailed     uint64 `json:"deletesFailed"`
	Selects           uint64 `json:"selects"`
	GCRuns            uint64 `json:"gcRuns"`
	VersionsReclaimed uint64 `json:"versionsReclaimed"`
	ActiveTxns        uint64 `json:"activeTransactions"`
	LiveKeys          uint64 `json:"liveKeys"`
	LiveVersions      uint64 `json:"liveVersions"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`
}

// Snapshot returns a copy of the current counter values.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		TxnsBegun:         atomic.LoadUint64(&c.txnsBegun),
		TxnsCommitted:     atomic.LoadUint64(&c.txnsCommitted),
		TxnsAborted:       atomic.LoadUint64(&c.txnsAborted),
		Conflicts:         atomic.LoadUint64(&c.conflicts),
		Inserts:           atomic.LoadUint64(&c.inserts),
		Updates:           atomic.LoadUint64(&c.updates),
		UpdatesFailed:     atomic.LoadUint64(&c.updatesFailed),
		Deletes:           atomic.LoadUint64(&c.deletes),
		DeletesFailed:     atomic.LoadUint64(&c.deletesFailed),
		Selects:           atomic.LoadUint64(&c.selects),
		GCRuns:            atomic.LoadUint64(&c.gcRuns),
		VersionsReclaimed: atomic.LoadUint64(&c.versionsReclaimed),
		ActiveTxns:        atomic.LoadUint64(&c.activeTxns),
		LiveKeys:          atomic.LoadUint64(&c.liveKeys),
		LiveVersions:      atomic.LoadUint64(&c.liveVersions),
		UptimeSeconds:     time.Since(c.startTime).Seconds(),
	}
}
