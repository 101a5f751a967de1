package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "wedding"

// Labels stay bounded: path is the registered route (e.g.
// /api/v1/guestbook/:id), never the raw URL, except for unmatched requests.
var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of non-streaming HTTP requests.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_inflight",
			Help:      "Requests currently being served, open streams excluded.",
		},
	)

	// Photo batches dominate request sizes; JSON forms sit in the first bucket.
	httpReqSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_size_bytes",
			Help:      "Declared size of request bodies.",
			Buckets:   prometheus.ExponentialBuckets(1<<10, 4, 9), // 1KiB..64MiB
		},
		[]string{"method", "path"},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_response_size_bytes",
			Help:      "Size of HTTP responses.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
		},
		[]string{"method", "path"},
	)

	streamsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_streams_open",
			Help:      "Open change-feed streams by route.",
		},
		[]string{"path"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by a rate limiter.",
		},
		[]string{"scope", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpReqSize, httpRespSize, streamsOpen, rateLimited)
}

// routePath is the registered route, or the raw path when none matched.
func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// isStream reports whether the route serves a long-lived event stream.
func isStream(path string) bool {
	return strings.Contains(path, "/stream/")
}

// Metrics instruments requests with Prometheus.
//
// Change-feed streams live for minutes or hours, so they are counted in
// wedding_http_streams_open while open and in the request counter when they
// end, but stay out of the latency histogram and the in-flight gauge.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := routePath(c)
		method := c.Request.Method
		start := time.Now()

		if isStream(path) {
			streamsOpen.WithLabelValues(path).Inc()
			defer streamsOpen.WithLabelValues(path).Dec()
		} else {
			httpInflight.Inc()
			defer httpInflight.Dec()
		}
		if n := c.Request.ContentLength; n > 0 {
			httpReqSize.WithLabelValues(method, path).Observe(float64(n))
		}

		c.Next()

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		if !isStream(path) {
			httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		}
		// Size is -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
