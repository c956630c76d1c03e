package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qsched_jobs_enqueued_total",
		Help: "Total number of compile jobs placed on the queue.",
	})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qsched_jobs_processed_total",
		Help: "Total number of compile jobs finished, labelled by status.",
	}, []string{"status"})

	JobsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qsched_jobs_dropped_total",
		Help: "Total number of compile jobs rejected due to a full queue.",
	})

	BlocksScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qsched_blocks_scheduled_total",
		Help: "Total number of blocks scheduled, labelled by heuristic and target.",
	}, []string{"heuristic", "target"})

	DDGEdges = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qsched_ddg_edges",
		Help:    "Number of data dependency graph edges per scheduled block.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	ScheduleLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qsched_schedule_length_cycles",
		Help:    "Length of scheduled blocks in cycles.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	Deadlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qsched_resource_deadlocks_total",
		Help: "Total number of blocks that could not be scheduled within the resource cycle limit.",
	})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qsched_pass_duration_ms",
		Help:    "Compiler pass latency in milliseconds, labelled by pass type.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000},
	}, []string{"pass_type"})

	CompileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qsched_compile_duration_ms",
		Help:    "End-to-end compile job latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qsched_queue_utilization_ratio",
		Help: "Current compile queue utilization (0–1).",
	})

	PlatformReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qsched_platform_reloads_total",
		Help: "Total number of platform reloads, labelled by result.",
	}, []string{"result"})
)
