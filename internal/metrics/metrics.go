// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habits_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habits_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"driver", "operation"},
	)

	CardCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_card_cache_lookups_total",
			Help: "Side cache lookups made while shifting card windows",
		},
		[]string{"result"}, // hit, miss
	)

	CardEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_card_events_total",
			Help: "Card change events by kind",
		},
		[]string{"kind"},
	)

	CardsCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "habits_cards_cached",
			Help: "Number of card managers held in memory",
		},
	)
)

// RecordHTTPRequestDuration records one served request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQuery records the time spent since start in a repository call.
func RecordDBQuery(driver, operation string, start time.Time) {
	DBQueryDuration.WithLabelValues(driver, operation).Observe(time.Since(start).Seconds())
}

// RecordCacheLookup counts a side cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CardCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CardCacheLookups.WithLabelValues("miss").Inc()
}

// IncrementCardEvent counts a card event of kind.
func IncrementCardEvent(kind string) {
	CardEvents.WithLabelValues(kind).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
