// Package metrics holds the Prometheus collectors of the scoring service.
// Collectors register with the default registry at init.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "realtube"

var (
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_total",
		Help:      "Votes committed, by category and action (submit, delete).",
	}, []string{"category", "action"})

	ScoreRecalcDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "score_recalculation_duration_seconds",
		Help:      "Duration of video score recalculations.",
		Buckets:   prometheus.DefBuckets,
	})

	ScoreRecalcFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_recalculation_failures_total",
		Help:      "Failed video score recalculations, by caller (ledger, worker).",
	}, []string{"source"})

	ScoreBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "score_worker_batch_size",
		Help:      "Distinct videos recalculated per score worker flush.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	ScoreWorkerReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_worker_reconnects_total",
		Help:      "Times the score worker lost its vote_changes subscription.",
	})

	ChannelTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "channel_worker_tick_duration_seconds",
		Help:      "Duration of a full channel worker tick.",
		Buckets:   []float64{.05, .1, .5, 1, 5, 10, 30, 60, 120},
	})

	ChannelsUpdated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "channel_worker_channels_total",
		Help:      "Channels processed by the channel worker, by result (updated, failed).",
	}, []string{"result"})

	ChannelsAutoFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "channel_worker_auto_flagged_total",
		Help:      "Channels that newly became auto-flagged.",
	})

	PreliminaryScores = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "preliminary_scores_total",
		Help:      "Videos seeded with a preliminary score.",
	})

	CacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_operations_total",
		Help:      "Redis cache operations, by operation and result (hit, miss, ok, error, skipped).",
	}, []string{"op", "result"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP request duration in seconds, by endpoint, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status"})

	RequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served.",
	})
)

// RegisterPool exposes live pgxpool statistics. Call once per pool.
func RegisterPool(pool *pgxpool.Pool) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connection_pool_active",
		Help:      "Number of acquired database connections.",
	}, func() float64 {
		return float64(pool.Stat().AcquiredConns())
	})
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connection_pool_idle",
		Help:      "Number of idle database connections.",
	}, func() float64 {
		return float64(pool.Stat().IdleConns())
	})
}
