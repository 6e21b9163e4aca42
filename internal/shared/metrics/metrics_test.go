package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestHistogramCumulativeBuckets(t *testing.T) {
	h := newHistogram([]float64{10, 100, 1000})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)
	h.Observe(5000)

	snap := h.Snapshot()
	if snap.count != 4 {
		t.Fatalf("expected count 4, got %d", snap.count)
	}
	// Per-bucket counts; rendering accumulates them.
	want := []uint64{1, 1, 1}
	for i, c := range snap.counts {
		if c != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d", i, want[i], c)
		}
	}

	var buf bytes.Buffer
	writeHistogram(&buf, "test_ms", "help", snap)
	out := buf.String()
	for _, line := range []string{
		`test_ms_bucket{le="10"} 1`,
		`test_ms_bucket{le="100"} 2`,
		`test_ms_bucket{le="1000"} 3`,
		`test_ms_bucket{le="+Inf"} 4`,
		`test_ms_count 4`,
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("missing %q in output:\n%s", line, out)
		}
	}
}

func TestRenderIncludesCounters(t *testing.T) {
	IncReportStarted()
	out := Render()
	if !strings.Contains(out, "report_started_total") {
		t.Fatalf("expected report_started_total in render output")
	}
	if !strings.Contains(out, "# TYPE report_started_total counter") {
		t.Fatalf("expected TYPE line in render output")
	}
}
