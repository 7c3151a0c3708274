// Package metrics holds the application's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glimmer_http_requests_total",
		Help: "Total HTTP requests by method, path and status",
	}, []string{"method", "path", "status"})
	RequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "glimmer_http_request_duration_seconds",
		Help:    "HTTP request duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glimmer_feed_cache_hits_total",
		Help: "Feed page responses served from the cache",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glimmer_feed_cache_misses_total",
		Help: "Feed page responses that fell through to the database",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, CacheHits, CacheMisses)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, path string, status int, d time.Duration) {
	RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	RequestDuration.Observe(d.Seconds())
}
