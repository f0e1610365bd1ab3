// Package observability holds Prometheus metrics and OpenTelemetry tracing setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeed_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geofeed_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FeedRequests counts composed feed pages by strategy.
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeed_feed_requests_total",
		Help: "Total number of feed pages composed by strategy",
	}, []string{"strategy"})

	// FeedPageItems records how many items each feed page carried.
	FeedPageItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geofeed_feed_page_items",
		Help:    "Number of items returned per feed page",
		Buckets: []float64{0, 1, 5, 10, 20, 30, 50},
	}, []string{"strategy"})

	// GeocodeRequests counts reverse-geocoding calls by outcome.
	GeocodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeed_geocode_requests_total",
		Help: "Reverse geocoding calls by outcome",
	}, []string{"outcome"})

	// ClusterCacheLookups counts cluster cache lookups by result.
	ClusterCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeed_cluster_cache_lookups_total",
		Help: "Cluster cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	// RecommendationCandidates counts recommended users by the tier that produced them.
	RecommendationCandidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeed_recommendation_candidates_total",
		Help: "Recommended users by producing tier",
	}, []string{"tier"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
