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

	OffersGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_offers_generated_total",
			Help: "Credit offers produced per bank",
		},
		[]string{"bank_id"},
	)

	OfferFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_offer_failures_total",
			Help: "Banks that produced no usable offer, by reason",
		},
		[]string{"bank_id", "reason"},
	)

	NarrativeFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_narrative_fallbacks_total",
			Help: "Narrative stages that fell back to defaults",
		},
		[]string{"stage"},
	)

	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "credit_broadcast_duration_seconds",
			Help:    "Wall time of a full broadcast round",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	BroadcastOffers = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "credit_broadcast_offers",
			Help:    "Offers collected per broadcast",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
	)

	Evaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_evaluations_total",
			Help: "Offer evaluations by recommendation and scoring mode",
		},
		[]string{"recommendation", "mode"},
	)
)
