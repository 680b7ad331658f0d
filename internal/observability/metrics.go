package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	submissionsTotal      *prometheus.CounterVec
	evaluatorFallbacks    *prometheus.CounterVec
	reportDispatchesTotal *prometheus.CounterVec
	gradingSeconds        prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_submissions_total",
			Help: "Total number of exam submissions processed, by outcome.",
		}, []string{"status"})

		evaluatorFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_evaluator_fallbacks_total",
			Help: "Evaluations that degraded to a local fallback, by section and reason.",
		}, []string{"section", "reason"})

		reportDispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_report_dispatches_total",
			Help: "Report delivery attempts, by outcome.",
		}, []string{"outcome"})

		gradingSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "exam_grading_duration_seconds",
			Help:    "End-to-end grading latency per submission.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		})

		prometheus.MustRegister(submissionsTotal, evaluatorFallbacks, reportDispatchesTotal, gradingSeconds)
	})
}

// Submissions exposes the counter for processed submissions.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// EvaluatorFallbacks exposes the counter for degraded evaluations.
func EvaluatorFallbacks() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluatorFallbacks
}

// ReportDispatches exposes the counter for report delivery attempts.
func ReportDispatches() *prometheus.CounterVec {
	RegisterMetrics()
	return reportDispatchesTotal
}

// GradingDuration exposes the grading latency histogram.
func GradingDuration() prometheus.Histogram {
	RegisterMetrics()
	return gradingSeconds
}
