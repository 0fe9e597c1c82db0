package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики engine. Экспортируются через /metrics каждого сервиса.
var (
	// ExecutionsStarted — количество допущенных к выполнению executions.
	ExecutionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowgrid_executions_started_total",
		Help: "Total executions admitted by the engine",
	})

	// ExecutionsFinished — завершённые executions по терминальному статусу.
	ExecutionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgrid_executions_finished_total",
		Help: "Total executions finished, by terminal status",
	}, []string{"status"})

	// NodeRuns — завершённые узлы по терминальному статусу.
	NodeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgrid_node_runs_total",
		Help: "Total node runs finished, by terminal status",
	}, []string{"status"})

	// NodeDuration — продолжительность выполнения узла по типу агента.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flowgrid_node_duration_seconds",
		Help:    "Node run duration by agent type",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"agent_type"})

	// EventsPublished — события, опубликованные в hub.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgrid_events_published_total",
		Help: "Total events published to the hub, by kind",
	}, []string{"kind"})

	// Subscribers — текущее количество подписчиков hub.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowgrid_hub_subscribers",
		Help: "Current number of hub subscribers",
	})
)
