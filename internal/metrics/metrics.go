// Package metrics holds the Prometheus collectors of modelconnect.
//
//	metrics.ModelsConnected.Inc()
//	metrics.StatementsBuilt.WithLabelValues("select", "person").Inc()
//
// Collectors register with the default Prometheus registry on first import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModelsConnected counts record types connected to a registry.
	ModelsConnected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modelconnect_models_connected_total",
			Help: "Total number of record types connected",
		},
	)

	// StatementsBuilt counts compiled statements by kind and table.
	StatementsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelconnect_statements_built_total",
			Help: "Total number of SQL statements compiled",
		},
		[]string{"kind", "table"},
	)

	// QueryDuration observes statement execution latency by kind, table
	// and status.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelconnect_query_duration_seconds",
			Help:    "Statement execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "table", "status"},
	)

	// SlowStatements counts executions slower than the configured threshold.
	SlowStatements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelconnect_slow_statements_total",
			Help: "Total number of statements exceeding the slow threshold",
		},
		[]string{"kind", "table"},
	)
)

// ObserveQuery records the latency of an executed statement.
func ObserveQuery(kind, table string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	QueryDuration.WithLabelValues(kind, table, status).Observe(d.Seconds())
}
