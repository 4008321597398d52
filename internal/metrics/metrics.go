// Package metrics defines the Prometheus instrumentation surface for the
// gateway, router, storage, and publisher concerns, grounded on
// user-service/internal/metrics/metrics.go.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts every event the gateway handled, by outcome.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_total",
			Help: "Total number of events handled by the gateway",
		},
		[]string{"event_type", "event_version", "source", "result"},
	)

	// EventHandlingDuration times each step of the handling pipeline.
	EventHandlingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_handling_duration_seconds",
			Help:    "Duration of event gateway handling steps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	// HTTPRequestsTotal counts inbound HTTP requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration times inbound HTTP requests.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// DBQueryDuration times storage backend queries.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of storage queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// PublisherPublishTotal counts publish attempts by backend and outcome.
	PublisherPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_publish_total",
			Help: "Total number of publish attempts",
		},
		[]string{"backend", "topic", "result"},
	)

	// ArchiveRetriesTotal counts background archive retry attempts.
	ArchiveRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_retries_total",
			Help: "Total number of background archive retry attempts",
		},
		[]string{"attempt", "result"},
	)

	// CacheRefreshTotal counts cached-storage refresh cycles.
	CacheRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_cache_refresh_total",
			Help: "Total number of cached storage refresh cycles",
		},
		[]string{"result"},
	)

	// EventsRoutedTotal counts router outcomes by destination topic.
	EventsRoutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_routed_total",
			Help: "Total number of events routed, by destination topic and outcome",
		},
		[]string{"topic", "result"},
	)

	// CacheHitsTotal counts cached-storage reads made while the in-memory
	// snapshot was still within its refresh interval.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cached storage reads served from cache",
		},
	)

	// CacheMissesTotal counts cached-storage reads made while the snapshot
	// was stale. Such reads are still answered from the snapshot; they only
	// schedule a background refresh from Postgres.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cached storage reads that missed the cache",
		},
	)

	// KafkaPublishDuration times Kafka publish calls by topic.
	KafkaPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_publish_duration_seconds",
			Help:    "Duration of Kafka publish calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)

// RecordDBQuery records a storage query's duration.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEvent increments the events counter for one handling outcome.
func RecordEvent(eventType, eventVersion, source, result string) {
	EventsTotal.WithLabelValues(eventType, eventVersion, source, result).Inc()
}

// RecordStep observes the duration of one gateway handling step.
func RecordStep(step string, duration time.Duration) {
	EventHandlingDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordPublish records one publish attempt's outcome.
func RecordPublish(backend, topic, result string) {
	PublisherPublishTotal.WithLabelValues(backend, topic, result).Inc()
}

// RecordArchiveRetry records one background archive retry's outcome.
func RecordArchiveRetry(attempt int, result string) {
	ArchiveRetriesTotal.WithLabelValues(strconv.Itoa(attempt), result).Inc()
}

// RecordCacheRefresh records one cached storage refresh cycle's outcome.
func RecordCacheRefresh(result string) {
	CacheRefreshTotal.WithLabelValues(result).Inc()
}

// RecordRouted records one router outcome.
func RecordRouted(topic, result string) {
	EventsRoutedTotal.WithLabelValues(topic, result).Inc()
}

// RecordCacheHit records one cached storage read served from cache.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records one cached storage read that missed the cache.
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordKafkaPublish records one Kafka publish call's duration.
func RecordKafkaPublish(topic string, duration time.Duration) {
	KafkaPublishDuration.WithLabelValues(topic).Observe(duration.Seconds())
}
