// Package observability registers the Prometheus collectors for the shoe
// engine and exposes small helpers to update them.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recompute outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeDiscarded = "discarded"
	OutcomeFailed    = "failed"
)

var (
	recomputeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoerack",
		Subsystem: "stats",
		Name:      "recomputations_total",
		Help:      "Shoe statistic recomputations by outcome.",
	}, []string{"outcome"})

	recomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shoerack",
		Subsystem: "stats",
		Name:      "recompute_duration_seconds",
		Help:      "Time spent recomputing one shoe, including activity and sample fetches.",
		Buckets:   prometheus.DefBuckets,
	})

	sampleFetchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shoerack",
		Subsystem: "source",
		Name:      "sample_fetch_failures_total",
		Help:      "Distance sample fetches that failed and were skipped.",
	})

	activityFetchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shoerack",
		Subsystem: "source",
		Name:      "activity_fetch_failures_total",
		Help:      "Activity fetches that failed and were treated as empty.",
	})

	conflictCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shoerack",
		Subsystem: "rack",
		Name:      "commit_conflicts_total",
		Help:      "Commits retried because the collection changed during recomputation.",
	})

	eventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoerack",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Change events handed to the publisher, by type and result.",
	}, []string{"event_type", "result"})

	restrictedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "shoerack",
		Subsystem: "entitlement",
		Name:      "restricted_shoes",
		Help:      "Number of shoes outside the free-tier usable set at the last evaluation.",
	})
)

func init() {
	prometheus.MustRegister(
		recomputeCounter,
		recomputeDuration,
		sampleFetchFailures,
		activityFetchFailures,
		conflictCounter,
		eventCounter,
		restrictedGauge,
	)
}

// RecordRecompute counts a recomputation and observes its duration.
func RecordRecompute(outcome string, d time.Duration) {
	recomputeCounter.WithLabelValues(outcome).Inc()
	if d > 0 {
		recomputeDuration.Observe(d.Seconds())
	}
}

// RecordSampleFetchFailure counts a failed sample fetch.
func RecordSampleFetchFailure() {
	sampleFetchFailures.Inc()
}

// RecordActivityFetchFailure counts a failed activity fetch.
func RecordActivityFetchFailure() {
	activityFetchFailures.Inc()
}

// RecordConflict counts a commit that had to be retried.
func RecordConflict() {
	conflictCounter.Inc()
}

// RecordEvent counts a publish attempt.
func RecordEvent(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventCounter.WithLabelValues(eventType, result).Inc()
}

// SetRestrictedShoes records the size of the restricted set.
func SetRestrictedShoes(n int) {
	restrictedGauge.Set(float64(n))
}
