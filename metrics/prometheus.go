package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Cart metrics
	cartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of persisted cart mutations",
		},
		[]string{"operation"},
	)

	cartPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_persist_failures_total",
			Help: "Total number of cart snapshot writes that failed",
		},
	)

	cartRehydrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_rehydrations_total",
			Help: "Total number of cart rehydrations from storage",
		},
		[]string{"result"},
	)

	// Address metrics
	addressLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_address_lookups_total",
			Help: "Total number of reverse geocoding lookups",
		},
		[]string{"outcome"},
	)

	addressStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_address_stale_total",
			Help: "Total number of address lookups discarded because a newer one was started",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_active_sessions",
			Help: "Number of sessions held in memory",
		},
	)

	checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Total number of checkout attempts",
		},
		[]string{"result"},
	)
)

func RecordCartMutation(operation string) {
	cartMutations.WithLabelValues(operation).Inc()
}

func RecordCartPersistFailure() {
	cartPersistFailures.Inc()
}

func RecordCartRehydration(result string) {
	cartRehydrations.WithLabelValues(result).Inc()
}

func RecordAddressLookup(outcome string) {
	addressLookups.WithLabelValues(outcome).Inc()
}

func RecordStaleAddress() {
	addressStale.Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

func RecordCheckout(result string) {
	checkouts.WithLabelValues(result).Inc()
}

// Middleware records request counts and latencies by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
