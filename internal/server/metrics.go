package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "impactd_http_requests_total",
			Help: "Number of HTTP requests by route and status code.",
		},
		[]string{"route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "impactd_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	impactClustersReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "impactd_impact_clusters_returned",
			Help:    "Number of clusters in successful impact responses.",
			Buckets: []float64{1, 2, 3, 5, 10, 20},
		},
	)

	graphNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "impactd_graph_nodes",
			Help: "Number of nodes in the current graph generation.",
		},
	)

	graphEdges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "impactd_graph_edges",
			Help: "Number of edges in the current graph generation.",
		},
	)

	graphCriticalEdges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "impactd_graph_critical_edges",
			Help: "Number of critical edges in the current graph generation.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		impactClustersReturned,
		graphNodes,
		graphEdges,
		graphCriticalEdges,
	)
}
