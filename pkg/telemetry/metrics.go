// Package telemetry instruments the sampling engine itself. It never reports
// the host metrics the engine collects.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sysmon"

type Metrics struct {
	CycleDuration        prometheus.Histogram
	Cycles               prometheus.Counter
	SkippedTicks         prometheus.Counter
	ReaderFailures       *prometheus.CounterVec
	ProcessQueryFailures *prometheus.CounterVec
	TrackedCounters      prometheus.Gauge
	PrunedCounters       prometheus.Counter
	SubscriberDrops      prometheus.Counter
	Subscribers          prometheus.Gauge
}

// New registers the engine metrics with reg. A nil reg yields working
// collectors that are not registered anywhere.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of sampling cycles in seconds",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		Cycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of completed sampling cycles",
		}),
		SkippedTicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_ticks_total",
			Help:      "Ticks skipped because the previous cycle was still running",
		}),
		ReaderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reader_failures_total",
			Help:      "Reader calls that produced no data for a cycle",
		}, []string{"reader"}),
		ProcessQueryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_query_failures_total",
			Help:      "Per-process queries that failed, by reason",
		}, []string{"reason"}),
		TrackedCounters: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_counters",
			Help:      "Entries held in the counter store after the last prune",
		}),
		PrunedCounters: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_counters_total",
			Help:      "Counter store entries removed because their entity vanished",
		}),
		SubscriberDrops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_drops_total",
			Help:      "Snapshots replaced before a slow subscriber consumed them",
		}),
		Subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Currently registered snapshot subscribers",
		}),
	}
}
