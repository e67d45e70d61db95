package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Task metrics
	TasksDiscovered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "switchyard_tasks_discovered_total",
			Help: "Total number of snapshots discovered and admitted",
		},
	)

	TasksCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "switchyard_tasks_completed_total",
			Help: "Total number of snapshot loads completed",
		},
	)

	TasksFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "switchyard_tasks_failed_total",
			Help: "Total number of tasks abandoned (retries exhausted or permanent failure)",
		},
	)

	TasksRetried = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "switchyard_tasks_retried_total",
			Help: "Total number of task retries scheduled",
		},
	)

	QueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "switchyard_queue_size",
			Help: "Number of tasks currently buffered in the queue",
		},
	)

	// Health gate metrics
	HealthVetoes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchyard_health_vetoes_total",
			Help: "Total number of loads vetoed by the health gate, by reason class",
		},
		[]string{"reason"},
	)

	// Load metrics
	LoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "switchyard_load_duration_seconds",
			Help:    "Snapshot load duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// Alias and retention metrics
	AliasSwitches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "switchyard_alias_switches_total",
			Help: "Total number of alias cutover operations",
		},
	)

	DatabasesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "switchyard_databases_dropped_total",
			Help: "Total number of databases dropped by retention",
		},
	)
)

func init() {
	prometheus.MustRegister(TasksDiscovered)
	prometheus.MustRegister(TasksCompleted)
	prometheus.MustRegister(TasksFailed)
	prometheus.MustRegister(TasksRetried)
	prometheus.MustRegister(QueueSize)
	prometheus.MustRegister(HealthVetoes)
	prometheus.MustRegister(LoadDuration)
	prometheus.MustRegister(AliasSwitches)
	prometheus.MustRegister(DatabasesDropped)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
