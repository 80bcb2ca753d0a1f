// Package observability holds the domain-level Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Participation outcomes.
const (
	ResultOK       = "ok"
	ResultFull     = "full"
	ResultConflict = "conflict"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vocamap",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity write committed to the store.",
	})
	participationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vocamap",
		Subsystem: "participation",
		Name:      "requests_total",
		Help:      "Join and leave requests grouped by operation and outcome.",
	}, []string{"operation", "result"})
	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vocamap",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Time spent loading and assembling activity read models.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"query"})
	cacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vocamap",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Read-model cache lookups grouped by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(activityPersistGauge, participationCounter, queryDuration, cacheCounter)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordParticipation counts a join or leave outcome.
func RecordParticipation(operation, result string) {
	participationCounter.WithLabelValues(operation, result).Inc()
}

// ObserveQuery records how long the named query took since start.
func ObserveQuery(query string, start time.Time) {
	queryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheCounter.WithLabelValues(outcome).Inc()
}

// ParticipationCounter exposes the participation collector for assertions.
func ParticipationCounter(operation, result string) prometheus.Counter {
	return participationCounter.WithLabelValues(operation, result)
}
