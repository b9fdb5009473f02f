package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processingJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "excel_processing_jobs_total",
			Help: "File processing job outcomes.",
		},
		[]string{"outcome"},
	)

	processingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "excel_processing_duration_seconds",
		Help:    "Time spent transcoding a single file.",
		Buckets: prometheus.DefBuckets,
	})

	processingQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "excel_processing_queue_depth",
		Help: "Tasks waiting in the in-memory processing queue.",
	})

	dashboardCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "excel_dashboard_cache_hits_total",
		Help: "Dashboard statistics served from cache.",
	})

	dashboardCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "excel_dashboard_cache_misses_total",
		Help: "Dashboard statistics computed from the database.",
	})

	notificationsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "excel_notifications_expired_total",
		Help: "Expired notifications removed by the cleanup loop.",
	})
)
