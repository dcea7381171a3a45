package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "archive"

// PipelineMetrics records extraction, commit, delete and HTTP outcomes.
type PipelineMetrics struct {
	extraction *prometheus.HistogramVec
	commits    *prometheus.CounterVec
	deletes    *prometheus.CounterVec
	requests   *prometheus.HistogramVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	extraction := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "extraction_duration_seconds",
		Help:      "Duration of datasheet extractions in seconds, by outcome.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	}, []string{"outcome"})
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "artwork_commits_total",
		Help:      "Artwork commits, by result.",
	}, []string{"result"})
	deletes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "artwork_deletes_total",
		Help:      "Artwork deletions, by result.",
	}, []string{"result"})
	requests := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(extraction, commits, deletes, requests)
	return &PipelineMetrics{
		extraction: extraction,
		commits:    commits,
		deletes:    deletes,
		requests:   requests,
	}
}

// ObserveExtraction records one extraction attempt sequence.
func (p *PipelineMetrics) ObserveExtraction(outcome string, elapsed time.Duration) {
	if p == nil || p.extraction == nil {
		return
	}
	p.extraction.WithLabelValues(normalizeLabel(outcome)).Observe(elapsed.Seconds())
}

// ObserveCommit counts a commit as success or failure.
func (p *PipelineMetrics) ObserveCommit(success bool) {
	if p == nil || p.commits == nil {
		return
	}
	p.commits.WithLabelValues(result(success)).Inc()
}

// ObserveDelete counts a delete as success or failure.
func (p *PipelineMetrics) ObserveDelete(success bool) {
	if p == nil || p.deletes == nil {
		return
	}
	p.deletes.WithLabelValues(result(success)).Inc()
}

// ObserveRequest records an HTTP request by route pattern.
func (p *PipelineMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if p == nil || p.requests == nil {
		return
	}
	p.requests.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
