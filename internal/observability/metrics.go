package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	submissionsTotal      *prometheus.CounterVec
	submissionsRejected   *prometheus.CounterVec
	gradesTotal           *prometheus.CounterVec
	gradeConflictsTotal   prometheus.Counter
	assignmentLocksTotal  *prometheus.CounterVec
	uploadLatencySeconds  prometheus.Histogram
	sideEffectErrorsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors exported by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursework_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_submissions_total",
			Help: "Accepted submissions by kind (first, resubmission) and lateness.",
		}, []string{"kind", "late"})

		submissionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_submissions_rejected_total",
			Help: "Rejected submissions by error code.",
		}, []string{"code"})

		gradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_grades_total",
			Help: "Grade writes by outcome.",
		}, []string{"outcome"})

		gradeConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursework_grade_conflicts_total",
			Help: "Grade writes rejected because the submission version moved.",
		})

		assignmentLocksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_assignment_locks_total",
			Help: "Attempts to lock an assignment on first grade by result.",
		}, []string{"result"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coursework_upload_latency_seconds",
			Help:    "Time spent storing submission files.",
			Buckets: prometheus.DefBuckets,
		})

		sideEffectErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_side_effect_errors_total",
			Help: "Best-effort follow-up actions that failed.",
		}, []string{"action"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			submissionsTotal,
			submissionsRejected,
			gradesTotal,
			gradeConflictsTotal,
			assignmentLocksTotal,
			uploadLatencySeconds,
			sideEffectErrorsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// Submissions counts accepted submissions.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// SubmissionsRejected counts rejected submissions.
func SubmissionsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsRejected
}

// Grades counts grade writes.
func Grades() *prometheus.CounterVec {
	RegisterMetrics()
	return gradesTotal
}

// GradeConflicts counts optimistic version conflicts on grade writes.
func GradeConflicts() prometheus.Counter {
	RegisterMetrics()
	return gradeConflictsTotal
}

// AssignmentLocks counts lock attempts.
func AssignmentLocks() *prometheus.CounterVec {
	RegisterMetrics()
	return assignmentLocksTotal
}

// UploadLatency observes file storage durations.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// SideEffectErrors counts failed best-effort actions.
func SideEffectErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return sideEffectErrorsTotal
}
