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

// Ingestion failure stages, used as the stage label.
const (
	StageExtraction  = "extraction"
	StageUpload      = "upload"
	StagePersistence = "persistence"
)

var stages = []string{StageExtraction, StageUpload, StagePersistence}

var (
	ingestRequestsTotal atomic.Uint64
	ingestFilesTotal    atomic.Uint64
	ingestPagesTotal    atomic.Uint64

	ingestFailedMu    sync.Mutex
	ingestFailedTotal = map[string]uint64{}

	ingestFileDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncIngestRequests counts one ingestion call.
func IncIngestRequests() {
	ingestRequestsTotal.Add(1)
}

// IncIngestFiles counts one successfully ingested file and its pages.
func IncIngestFiles(pages int) {
	ingestFilesTotal.Add(1)
	if pages > 0 {
		ingestPagesTotal.Add(uint64(pages))
	}
}

// IncIngestFailed counts a file that failed at stage.
func IncIngestFailed(stage string) {
	ingestFailedMu.Lock()
	ingestFailedTotal[stage]++
	ingestFailedMu.Unlock()
}

// ObserveIngestFileDurationMs records how long one file took end to end.
func ObserveIngestFileDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	ingestFileDuration.Observe(value)
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
	writeCounter(&buf, "ingest_requests_total", "Total ingestion calls", ingestRequestsTotal.Load())
	writeCounter(&buf, "ingest_files_total", "Total files ingested", ingestFilesTotal.Load())
	writeCounter(&buf, "ingest_pages_total", "Total pages extracted from ingested files", ingestPagesTotal.Load())

	fmt.Fprintf(&buf, "# HELP %s %s\n", "ingest_files_failed_total", "Total files that failed ingestion, by stage")
	fmt.Fprintf(&buf, "# TYPE %s counter\n", "ingest_files_failed_total")
	ingestFailedMu.Lock()
	for _, stage := range stages {
		fmt.Fprintf(&buf, "ingest_files_failed_total{stage=%q} %d\n", stage, ingestFailedTotal[stage])
	}
	ingestFailedMu.Unlock()

	writeHistogram(&buf, "ingest_file_duration_ms", "Per-file ingestion duration in milliseconds", ingestFileDuration.Snapshot())
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

// Observe records value in the first bucket that holds it; cumulative
// counts are built at render time.
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
