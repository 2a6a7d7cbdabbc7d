package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	submissionsTotal     *prometheus.CounterVec
	marksAwarded         prometheus.Histogram
	reopensTotal         prometheus.Counter
	gradeOverridesTotal  prometheus.Counter
	requestLatencySecond *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors for the grading API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_submissions_total",
			Help: "Submissions processed, labelled by resulting status.",
		}, []string{"status"})

		marksAwarded = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grading_marks_awarded",
			Help:    "Distribution of final marks picked by the scoring engine.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		})

		reopensTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_reopens_total",
			Help: "Submissions reopened by teachers.",
		})

		gradeOverridesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_grade_overrides_total",
			Help: "Manual teacher grades superseding the computed score.",
		})

		requestLatencySecond = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(submissionsTotal, marksAwarded, reopensTotal, gradeOverridesTotal, requestLatencySecond)
	})
}

// Submissions exposes the per-status submission counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// Marks exposes the final-mark histogram.
func Marks() prometheus.Histogram {
	RegisterMetrics()
	return marksAwarded
}

// Reopens exposes the reopen counter.
func Reopens() prometheus.Counter {
	RegisterMetrics()
	return reopensTotal
}

// GradeOverrides exposes the manual-grade counter.
func GradeOverrides() prometheus.Counter {
	RegisterMetrics()
	return gradeOverridesTotal
}

// RequestLatency exposes the request latency histogram.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySecond
}
