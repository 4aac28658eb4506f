package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "featured",
			Name:      "http_requests",
			Help:      "Time taken to process API requests",
			Buckets:   []float64{.005, .01, .025, .05, .075, .1, .15, .2, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"handler", "method", "code"},
	)

	FeatureTransitionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "featured",
			Name:      "feature_transitions",
			Help:      "Number of not-featured to featured transitions by trigger",
		},
		[]string{"trigger"},
	)

	CacheInvalidationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "featured",
			Name:      "cache_invalidations",
			Help:      "Number of listing cache invalidations",
		},
		[]string{"error"},
	)
)

func CollectRequestsMetric(handler, method string, code int, start time.Time) {
	RequestsHistogram.
		WithLabelValues(handler, method, strconv.Itoa(code)).
		Observe(time.Since(start).Seconds())
}

func CollectFeatureTransition(trigger string) {
	FeatureTransitionsCounter.
		WithLabelValues(trigger).
		Inc()
}

func CollectCacheInvalidation(err error) {
	CacheInvalidationsCounter.
		WithLabelValues(errLabelValue(err)).
		Inc()
}

func errLabelValue(err error) string {
	if err != nil {
		return "true"
	}
	return "false"
}
