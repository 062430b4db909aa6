// Package metrics provides Prometheus metrics for indicator fetches.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "macrodash"

var (
	// FetchTotal counts fetches by outcome (ok, unavailable, malformed).
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Total number of indicator fetches",
		},
		[]string{"provider", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of indicator fetches in seconds",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider"},
	)

	// IndicatorPoints reports how many data points each indicator received
	// in the last successful fetch. Zero means the upstream omitted it.
	IndicatorPoints = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indicator_points",
			Help:      "Data points per indicator in the last successful fetch",
		},
		[]string{"indicator"},
	)

	GroundingSources = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grounding_sources",
			Help:      "Number of grounding sources per successful fetch",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)
)

func RecordFetch(provider, status string, seconds float64) {
	FetchTotal.WithLabelValues(provider, status).Inc()
	FetchDuration.WithLabelValues(provider).Observe(seconds)
}

func RecordIndicatorPoints(indicator string, points int) {
	IndicatorPoints.WithLabelValues(indicator).Set(float64(points))
}

func RecordGroundingSources(count int) {
	GroundingSources.Observe(float64(count))
}
