package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fxsentinel",
			Name:      "cycles_total",
			Help:      "Polling cycles by outcome.",
		},
		[]string{"outcome"},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fxsentinel",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a full polling cycle.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fxsentinel",
			Name:      "fetch_failures_total",
			Help:      "Instruments skipped because market data was unavailable.",
		},
		[]string{"instrument"},
	)

	SignTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fxsentinel",
			Name:      "sign_transitions_total",
			Help:      "Hourly sign changes by new sign.",
		},
		[]string{"instrument", "sign"},
	)

	VolatilityTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fxsentinel",
			Name:      "volatility_transitions_total",
			Help:      "Five-minute class changes by new class.",
		},
		[]string{"instrument", "class"},
	)

	TrackedInstruments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fxsentinel",
			Name:      "tracked_instruments",
			Help:      "Instruments currently held in the state table.",
		},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CyclesTotal,
			CycleDuration,
			FetchFailures,
			SignTransitions,
			VolatilityTransitions,
			TrackedInstruments,
		)
	})
}
