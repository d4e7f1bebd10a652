package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SeriesTotal counts series per outcome: simulated or reused from a store.
	SeriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "losssim_series_total",
			Help: "Total number of series folded into cell results",
		},
		[]string{"source"},
	)

	// NonConvergedTotal counts runs ended by the lost-call safety stop.
	NonConvergedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "losssim_nonconverged_runs_total",
			Help: "Total number of runs that stopped before reaching the observation threshold",
		},
	)

	// InfeasibleTotal counts skipped parameter combinations.
	InfeasibleTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "losssim_infeasible_classes_total",
			Help: "Total number of parameter combinations no distribution could be fitted to",
		},
	)

	// PersistFailuresTotal counts results that could not be stored.
	PersistFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "losssim_persist_failures_total",
			Help: "Total number of series the result store rejected",
		},
	)

	// EventsTotal counts events processed during statistics collection.
	EventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "losssim_events_total",
			Help: "Total number of simulated events during statistics collection",
		},
	)

	// RunDuration tracks wall-clock time per simulated series.
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "losssim_run_duration_seconds",
			Help:    "Wall-clock duration of one simulated series",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(SeriesTotal)
	prometheus.MustRegister(NonConvergedTotal)
	prometheus.MustRegister(InfeasibleTotal)
	prometheus.MustRegister(PersistFailuresTotal)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(RunDuration)
}
