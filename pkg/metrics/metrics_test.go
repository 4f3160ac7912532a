package metrics

import (
	"testing"
	"time"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()

	c.RecordBegin()
	c.RecordBegin()
	c.RecordCommit(2 * time.Millisecond)
	c.RecordAbort()
	c.RecordConflict()
	c.RecordInsert()
	c.RecordUpdate(true)
	c.RecordUpdate(false)
	c.RecordDelete(false)
	c.RecordSelect()
	c.RecordGC(5)
	c.SetGauges(3, 10, 25)

	snap := c.Snapshot()

	if snap.TxnsBegun != 2 {
		t.Errorf("Expected 2 begun, got %d", snap.TxnsBegun)
	}
	if snap.TxnsCommitted != 1 || snap.TxnsAborted != 1 || snap.Conflicts != 1 {
		t.Errorf("Unexpected lifecycle counters: %+v", snap)
	}
	if snap.Updates != 2 || snap.UpdatesFailed != 1 {
		t.Errorf("Expected 2 updates with 1 failure, got %d/%d", snap.Updates, snap.UpdatesFailed)
	}
	if snap.Deletes != 1 || snap.DeletesFailed != 1 {
		t.Errorf("Expected 1 delete with 1 failure, got %d/%d", snap.Deletes, snap.DeletesFailed)
	}
	if snap.GCRuns != 1 || snap.VersionsReclaimed != 5 {
		t.Errorf("Expected 1 GC run reclaiming 5, got %d/%d", snap.GCRuns, snap.VersionsReclaimed)
	}
	if snap.ActiveTxns != 3 || snap.LiveKeys != 10 || snap.LiveVersions != 25 {
		t.Errorf("Unexpected gauges: %+v", snap)
	}
}

func TestTimingHistogramBuckets(t *testing.T) {
	h := &TimingHistogram{}

	h.Record(500 * time.Microsecond)
	h.Record(5 * time.Millisecond)
	h.Record(50 * time.Millisecond)
	h.Record(500 * time.Millisecond)
	h.Record(2 * time.Second)

	if h.bucket0_1ms != 1 || h.bucket1_10ms != 1 || h.bucket10_100ms != 1 ||
		h.bucket100_1000ms != 1 || h.bucket1000ms != 1 {
		t.Errorf("Expected one observation per bucket, got %d %d %d %d %d",
			h.bucket0_1ms, h.bucket1_10ms, h.bucket10_100ms, h.bucket100_1000ms, h.bucket1000ms)
	}
	if h.count != 5 {
		t.Errorf("Expected count 5, got %d", h.count)
	}
}
