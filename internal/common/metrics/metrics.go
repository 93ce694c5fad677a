// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Portal API requests by route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Portal API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	DraftSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_draft_saves_total",
			Help: "Draft save attempts by outcome",
		},
		[]string{"outcome"},
	)

	CatalogLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_catalog_loads_total",
			Help: "Question catalog loads by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_submissions_total",
			Help: "Application submissions by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	ReviewDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_decisions_total",
			Help: "Review decisions recorded by decision",
		},
		[]string{"decision"},
	)
)
