package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var QueriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "valhalla_queries_total",
		Help: "Total number of analytics store operations by outcome",
	},
	[]string{"operation", "outcome"},
)

var QueryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "valhalla_query_duration_seconds",
		Help:    "End-to-end duration of analytics store operations in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

var ConnectionsAcquiredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "valhalla_connections_acquired_total",
		Help: "Total number of connections leased from the pool",
	},
)

var ConnectionsReleasedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "valhalla_connections_released_total",
		Help: "Total number of connections returned to the pool",
	},
)

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

// Register adds the client, pool and HTTP metrics to reg. db may be nil when
// no pool is open yet.
func Register(reg prometheus.Registerer, db *sql.DB) error {
	cs := []prometheus.Collector{
		QueriesTotal,
		QueryDuration,
		ConnectionsAcquiredTotal,
		ConnectionsReleasedTotal,
		HttpRequestsTotal,
		HttpRequestDuration,
	}
	if db != nil {
		cs = append(cs, collectors.NewDBStatsCollector(db, "valhalla"))
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
