package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	reportStartedTotal   atomic.Uint64
	reportCompletedTotal atomic.Uint64
	reportFailedTotal    atomic.Uint64

	extractionFailedTotal  atomic.Uint64
	coverageRetryTotal     atomic.Uint64
	coverageShortfallTotal atomic.Uint64

	reportJobsReceivedTotal             atomic.Uint64
	reportJobsCompletedTotal            atomic.Uint64
	reportJobsFailedTotal               atomic.Uint64
	reportJobsDeletedUnrecoverableTotal atomic.Uint64

	reportDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncReportStarted increments the started counter.
func IncReportStarted() {
	reportStartedTotal.Add(1)
}

// IncReportCompleted increments the completed counter.
func IncReportCompleted() {
	reportCompletedTotal.Add(1)
}

// IncReportFailed increments the failed counter.
func IncReportFailed() {
	reportFailedTotal.Add(1)
}

// IncExtractionFailed increments the counter of model outputs with no
// recoverable JSON object.
func IncExtractionFailed() {
	extractionFailedTotal.Add(1)
}

// IncCoverageRetry increments the coverage re-query counter.
func IncCoverageRetry() {
	coverageRetryTotal.Add(1)
}

// IncCoverageShortfall increments the counter of reports completed below the
// coverage minimum.
func IncCoverageShortfall() {
	coverageShortfallTotal.Add(1)
}

// IncReportJobsReceived increments the queue messages received counter.
func IncReportJobsReceived() {
	reportJobsReceivedTotal.Add(1)
}

// IncReportJobsCompleted increments the queue messages completed counter.
func IncReportJobsCompleted() {
	reportJobsCompletedTotal.Add(1)
}

// IncReportJobsFailed increments the queue messages failed counter.
func IncReportJobsFailed() {
	reportJobsFailedTotal.Add(1)
}

// IncReportJobsDeletedUnrecoverable increments the counter of malformed
// messages deleted without processing.
func IncReportJobsDeletedUnrecoverable() {
	reportJobsDeletedUnrecoverableTotal.Add(1)
}

// ObserveReportDurationMs records a report duration in milliseconds.
func ObserveReportDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	reportDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "report_started_total", "Total reports started", reportStartedTotal.Load())
	writeCounter(&buf, "report_completed_total", "Total reports completed", reportCompletedTotal.Load())
	writeCounter(&buf, "report_failed_total", "Total reports failed", reportFailedTotal.Load())
	writeCounter(&buf, "extraction_failed_total", "Total model outputs with no recoverable JSON", extractionFailedTotal.Load())
	writeCounter(&buf, "coverage_retry_total", "Total coverage re-queries issued", coverageRetryTotal.Load())
	writeCounter(&buf, "coverage_shortfall_total", "Total reports completed below coverage minimum", coverageShortfallTotal.Load())
	writeCounter(&buf, "report_jobs_received_total", "Total queue messages received", reportJobsReceivedTotal.Load())
	writeCounter(&buf, "report_jobs_completed_total", "Total queue messages completed", reportJobsCompletedTotal.Load())
	writeCounter(&buf, "report_jobs_failed_total", "Total queue messages failed", reportJobsFailedTotal.Load())
	writeCounter(&buf, "report_jobs_deleted_unrecoverable_total", "Total malformed queue messages deleted", reportJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "report_duration_ms", "Report duration in milliseconds", reportDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
