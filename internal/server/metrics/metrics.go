// Package metrics exposes Prometheus instrumentation for the server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login results.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Submission outcomes.
const (
	SubmitCreated       = "created"
	SubmitInvalid       = "invalid"
	SubmitIngestFailed  = "ingest_failed"
	SubmitPersistFailed = "persist_failed"
)

// Metrics tracks logins, submissions, image ingestion and HTTP latency.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Logins          *prometheus.CounterVec
	Submissions     *prometheus.CounterVec
	IngestDuration  prometheus.Histogram
	RequestDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_logins_total",
			Help: "Sign-in attempts by result",
		}, []string{"result"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_item_submissions_total",
			Help: "Item submissions by outcome",
		}, []string{"outcome"}),
		IngestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lostfound_image_ingest_duration_seconds",
			Help:    "Duration of image uploads to the asset store",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lostfound_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// ObserveIngest records an upload that started at start.
func (m *Metrics) ObserveIngest(start time.Time) {
	if m == nil {
		return
	}
	m.IngestDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
