// Package metrics exposes the prometheus collectors for the engine and
// the container service. Collectors are registered on the default
// registry via promauto; the host decides whether and where to serve
// them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics
var (
	EngineOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEngineOperations,
			Help: HelpTextEngineOperations,
		},
		[]string{LabelOperation, LabelOutcome},
	)

	QuantityMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameQuantityMoved,
			Help: HelpTextQuantityMoved,
		},
		[]string{LabelDirection},
	)
)

// Service metrics
var (
	ServiceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameServiceOperations,
			Help: HelpTextServiceOperations,
		},
		[]string{LabelOperation, LabelOutcome},
	)

	ServiceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameServiceDuration,
			Help:    HelpTextServiceDuration,
			Buckets: ServiceLatencyBuckets,
		},
		[]string{LabelOperation},
	)

	ContainerCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameCacheHits,
			Help: HelpTextCacheHits,
		},
	)

	ContainerCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameCacheMisses,
			Help: HelpTextCacheMisses,
		},
	)
)

// Event metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)
)

// Outcome maps an accepted flag to its label value.
func Outcome(accepted bool) string {
	if accepted {
		return OutcomeAccepted
	}
	return OutcomeRefused
}
