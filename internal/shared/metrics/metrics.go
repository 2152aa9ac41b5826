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
	uploadStartedTotal atomic.Uint64
	uploadFailedTotal  atomic.Uint64
	pollRequestsTotal  atomic.Uint64
	pollSkippedTotal   atomic.Uint64
	pollFailuresTotal  atomic.Uint64
	parseFailedTotal   atomic.Uint64
	hydrationsTotal    atomic.Uint64
	activeSessions     atomic.Int64

	parseWait = newHistogram([]float64{500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncUploadStarted counts uploads that passed validation.
func IncUploadStarted() { uploadStartedTotal.Add(1) }

// IncUploadFailed counts failed upload calls.
func IncUploadFailed() { uploadFailedTotal.Add(1) }

// IncPollRequest counts status requests issued.
func IncPollRequest() { pollRequestsTotal.Add(1) }

// IncPollSkipped counts ticks dropped because a poll was still outstanding.
func IncPollSkipped() { pollSkippedTotal.Add(1) }

// IncPollFailure counts transient poll errors.
func IncPollFailure() { pollFailuresTotal.Add(1) }

// IncParseFailed counts jobs the server reported as failed.
func IncParseFailed() { parseFailedTotal.Add(1) }

// IncHydration counts completed session hydrations.
func IncHydration() { hydrationsTotal.Add(1) }

// AddActiveSessions adjusts the bridge session gauge.
func AddActiveSessions(delta int64) { activeSessions.Add(delta) }

// ObserveParseWaitMs records the time between upload acceptance and a terminal status.
func ObserveParseWaitMs(value float64) {
	if value < 0 {
		value = 0
	}
	parseWait.Observe(value)
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
	writeCounter(&buf, "upload_started_total", "Uploads accepted for submission", uploadStartedTotal.Load())
	writeCounter(&buf, "upload_failed_total", "Upload calls that failed", uploadFailedTotal.Load())
	writeCounter(&buf, "poll_requests_total", "Upload status requests issued", pollRequestsTotal.Load())
	writeCounter(&buf, "poll_skipped_total", "Poll ticks skipped while a request was outstanding", pollSkippedTotal.Load())
	writeCounter(&buf, "poll_failures_total", "Transient upload status failures", pollFailuresTotal.Load())
	writeCounter(&buf, "parse_failed_total", "Jobs reported failed by the server", parseFailedTotal.Load())
	writeCounter(&buf, "hydrations_total", "Document sessions hydrated", hydrationsTotal.Load())
	writeGauge(&buf, "bridge_active_sessions", "Controllers held by the session bridge", activeSessions.Load())
	writeHistogram(&buf, "parse_wait_ms", "Time from upload acceptance to terminal status in milliseconds", parseWait.Snapshot())
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
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeGauge(buf *bytes.Buffer, name, help string, value int64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

// Buckets are stored per-range; the cumulative le counts are computed here.
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
