package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWriteMetricsExposition(t *testing.T) {
	c := NewCollector()
	c.RecordBegin()
	c.RecordCommit(3 * time.Millisecond)
	c.RecordConflict()
	c.SetGauges(1, 2, 3)

	exporter := NewPrometheusExporter(c)

	var buf bytes.Buffer
	if err := exporter.WriteMetrics(&buf); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}
	out := buf.String()

	expected := []string{
		"# TYPE tupledb_transactions_begun_total counter",
		"tupledb_transactions_begun_total 1",
		"tupledb_transactions_committed_total 1",
		"tupledb_write_conflicts_total 1",
		"# TYPE tupledb_active_transactions gauge",
		"tupledb_active_transactions 1",
		"tupledb_live_versions 3",
		"# TYPE tupledb_commit_duration_seconds histogram",
		"tupledb_commit_duration_seconds_bucket{le=\"+Inf\"} 1",
		"tupledb_commit_duration_seconds_count 1",
	}
	for _, want := range expected {
		if !strings.Contains(out, want) {
			t.Errorf("Exposition missing %q", want)
		}
	}
}

func TestSetNamespace(t *testing.T) {
	c := NewCollector()
	exporter := NewPrometheusExporter(c)
	exporter.SetNamespace("custom")

	var buf bytes.Buffer
	if err := exporter.WriteMetrics(&buf); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}
	if !strings.Contains(buf.String(), "custom_uptime_seconds") {
		t.Error("Expected custom namespace prefix in exposition")
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	c := NewCollector()
	c.RecordCommit(500 * time.Microsecond)
	c.RecordCommit(5 * time.Millisecond)

	var buf bytes.Buffer
	if err := NewPrometheusExporter(c).WriteMetrics(&buf); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "commit_duration_seconds_bucket{le=\"0.001\"} 1") {
		t.Error("Expected 1 observation at or below 1ms")
	}
	if !strings.Contains(out, "commit_duration_seconds_bucket{le=\"0.01\"} 2") {
		t.Error("Expected cumulative count 2 at 10ms")
	}
	if !strings.Contains(out, "commit_duration_seconds_bucket{le=\"+Inf\"} 2") {
		t.Error("Expected cumulative count 2 at +Inf")
	}
}
