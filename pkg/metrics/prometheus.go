package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

// PrometheusExporter writes collector state in the Prometheus text
// exposition format.
// Format: https://prometheus.io/docs/instrumenting/exposition_formats/
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter creates an exporter over the given collector.
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		namespace: "tupledb",
	}
}

// SetNamespace sets the metric name prefix.
func (pe *PrometheusExporter) SetNamespace(namespace string) {
	pe.namespace = namespace
}

// WriteMetrics writes all metrics to the writer.
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	snap := pe.collector.Snapshot()

	if err := pe.writeGauge(w, "uptime_seconds", "Engine uptime in seconds", snap.UptimeSeconds); err != nil {
		return err
	}

	counters := []struct {
		name string
		help string
		val  uint64
	}{
		{"transactions_begun_total", "Total number of transactions started", snap.TxnsBegun},
		{"transactions_committed_total", "Total number of committed transactions", snap.TxnsCommitted},
		{"transactions_aborted_total", "Total number of aborted transactions", snap.TxnsAborted},
		{"write_conflicts_total", "Total number of commits rejected by write-write conflict", snap.Conflicts},
		{"inserts_total", "Total number of buffered insert operations", snap.Inserts},
		{"updates_total", "Total number of update operations", snap.Updates},
		{"updates_failed_total", "Total number of failed update operations", snap.UpdatesFailed},
		{"deletes_total", "Total number of delete operations", snap.Deletes},
		{"deletes_failed_total", "Total number of failed delete operations", snap.DeletesFailed},
		{"selects_total", "Total number of select operations", snap.Selects},
		{"gc_runs_total", "Total number of garbage collection passes", snap.GCRuns},
		{"gc_versions_reclaimed_total", "Total number of row versions reclaimed", snap.VersionsReclaimed},
	}
	for _, c := range counters {
		if err := pe.writeCounter(w, c.name, c.help, c.val); err != nil {
			return err
		}
	}

	gauges := []struct {
		name string
		help string
		val  uint64
	}{
		{"active_transactions", "Number of transactions currently in progress", snap.ActiveTxns},
		{"live_keys", "Number of keys with at least one stored version", snap.LiveKeys},
		{"live_versions", "Number of row versions currently stored", snap.LiveVersions},
	}
	for _, g := range gauges {
		if err := pe.writeGauge(w, g.name, g.help, float64(g.val)); err != nil {
			return err
		}
	}

	return pe.writeHistogram(w, "commit_duration_seconds", "Commit latency histogram", pe.collector.commitTimings)
}

func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	full := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", full, help, full, full, value)
	return err
}

func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	full := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", full, help, full, full, value)
	return err
}

func (pe *PrometheusExporter) writeHistogram(w io.Writer, name, help string, h *TimingHistogram) error {
	full := pe.namespace + "_" + name

	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", full, help, full); err != nil {
		return err
	}

	b0 := atomic.LoadUint64(&h.bucket0_1ms)
	b1 := atomic.LoadUint64(&h.bucket1_10ms)
	b2 := atomic.LoadUint64(&h.bucket10_100ms)
	b3 := atomic.LoadUint64(&h.bucket100_1000ms)
	b4 := atomic.LoadUint64(&h.bucket1000ms)

	cumulative := uint64(0)
	bounds := []struct {
		le    string
		count uint64
	}{
		{"0.001", b0},
		{"0.01", b1},
		{"0.1", b2},
		{"1", b3},
		{"+Inf", b4},
	}
	for _, b := range bounds {
		cumulative += b.count
		if _, err := fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", full, b.le, cumulative); err != nil {
			return err
		}
	}

	h.mu.Lock()
	count := h.count
	sum := h.sum
	h.mu.Unlock()

	if _, err := fmt.Fprintf(w, "%s_sum %g\n", full, sum.Seconds()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s_count %d\n", full, count)
	return err
}
