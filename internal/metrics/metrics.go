// Package metrics holds the Prometheus collectors for check cycles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linkwatch"

var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "check_cycles_total",
		Help:      "Check cycles by outcome.",
	}, []string{"outcome"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "check_cycle_duration_seconds",
		Help:      "Wall time of a full check cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	LinksChecked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "links_checked_total",
		Help:      "Links processed by result: changed, unchanged, baseline or failed.",
	}, []string{"result"})

	Summaries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "summaries_total",
		Help:      "Summary requests by outcome: generated, sentinel or degraded.",
	}, []string{"outcome"})
)
