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
)

// Pipeline metrics.
var (
	LLMInvocationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_invocation_attempts_total",
			Help: "LLM invocation attempts by outcome (success, retry, exhausted)",
		},
		[]string{"outcome"},
	)

	QueryExtractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_extraction_total",
			Help: "Query extraction results by mode (strict, fallback, failed)",
		},
		[]string{"mode"},
	)

	QueryHardeningPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_hardening_passes_total",
			Help: "Hardening passes that changed the query",
		},
		[]string{"pass"},
	)

	QuerySafetyRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_safety_rejections_total",
			Help: "Queries rejected by the safety denylist",
		},
		[]string{"pattern"},
	)

	QueryQualityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "query_quality_score",
			Help:    "Quality score of synthesized queries",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	NarrativeSectionsMissing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_sections_missing_total",
			Help: "Narrative sections defaulted because they were absent",
		},
		[]string{"section"},
	)

	NarrativeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_cache_lookups_total",
			Help: "Narrative parse cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
