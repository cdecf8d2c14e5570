// Package metrics exposes Prometheus collectors for the HTTP layer and the
// exam lifecycle. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics groups every collector the server registers.
type Metrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	progressUpdates *prometheus.CounterVec
	resets          *prometheus.CounterVec
	archiveRows     prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_submissions_total",
				Help: "Exam submissions by outcome",
			},
			[]string{"outcome"},
		),
		progressUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_progress_updates_total",
				Help: "Progress upserts by outcome",
			},
			[]string{"outcome"},
		),
		resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exam_resets_total",
				Help: "Archive and reset attempts by outcome",
			},
			[]string{"outcome"},
		),
		archiveRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "exam_archive_rows_last",
				Help: "Number of results captured by the most recent archive",
			},
		),
	}

	reg.MustRegister(m.requests, m.duration, m.submissions, m.progressUpdates, m.resets, m.archiveRows)
	return m
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the collectors gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) gin.HandlerFunc {
	h := promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Submission counts one submit attempt.
func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// ProgressUpdate counts one progress upsert.
func (m *Metrics) ProgressUpdate(outcome string) {
	if m == nil {
		return
	}
	m.progressUpdates.WithLabelValues(outcome).Inc()
}

// Reset counts one reset attempt.
func (m *Metrics) Reset(outcome string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(outcome).Inc()
}

// ArchivedRows sets the size of the latest archive.
func (m *Metrics) ArchivedRows(n int) {
	if m == nil {
		return
	}
	m.archiveRows.Set(float64(n))
}
