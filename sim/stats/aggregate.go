// Package stats aggregates the finalized results of independent series of
// one (traffic class, capacity) cell into mean and population standard
// deviation per occupancy level and metric.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/inference-sim/loss-sim/sim"
)

// ErrNoSeries is returned when a cell has no completed series to aggregate.
var ErrNoSeries = errors.New("no series to aggregate")

// AggregatedStatistics is the per-cell summary written to the report.
type AggregatedStatistics struct {
	UUIDs           []string         `json:"uuids"`
	V               int              `json:"v"`
	Series          int              `json:"series"`
	NonConverged    int              `json:"non_converged"`
	StatesAverage   []sim.Macrostate `json:"states_average"`
	StatesDeviation []sim.Macrostate `json:"states_deviation"`
	NoOfEventsAvg   float64          `json:"no_of_events_avg"`
	NoOfEventsDev   float64          `json:"no_of_events_dev"`
}

// Aggregate computes mean and population standard deviation across series.
//
// Each metric's values are sorted before summation, so the result is
// bit-identical whatever order the series arrive in. All series must share
// the same capacity.
func Aggregate(series []sim.FinalizedStatistics) (AggregatedStatistics, error) {
	if len(series) == 0 {
		return AggregatedStatistics{}, ErrNoSeries
	}
	v := series[0].V
	for i, s := range series {
		if s.V != v || len(s.States) != v+1 {
			return AggregatedStatistics{}, fmt.Errorf("series %d has capacity %d with %d states, want %d", i, s.V, len(s.States), v)
		}
	}

	agg := AggregatedStatistics{
		UUIDs:           make([]string, 0, len(series)),
		V:               v,
		Series:          len(series),
		StatesAverage:   make([]sim.Macrostate, v+1),
		StatesDeviation: make([]sim.Macrostate, v+1),
	}
	for _, s := range series {
		agg.UUIDs = append(agg.UUIDs, s.Metadata.UUID)
		if !s.Metadata.Converged {
			agg.NonConverged++
		}
	}
	sort.Strings(agg.UUIDs)

	values := make([]float64, len(series))
	meanStd := func(get func(sim.FinalizedStatistics) float64) (float64, float64) {
		for i, s := range series {
			values[i] = get(s)
		}
		sort.Float64s(values)
		mean, std := stat.PopMeanStdDev(values, nil)
		if math.IsNaN(std) {
			// rounding can push a near-zero variance below zero
			std = 0
		}
		return mean, std
	}

	for n := 0; n <= v; n++ {
		avg, dev := &agg.StatesAverage[n], &agg.StatesDeviation[n]
		avg.P, dev.P = meanStd(func(s sim.FinalizedStatistics) float64 { return s.States[n].P })
		avg.OutNew, dev.OutNew = meanStd(func(s sim.FinalizedStatistics) float64 { return s.States[n].OutNew })
		avg.OutEnd, dev.OutEnd = meanStd(func(s sim.FinalizedStatistics) float64 { return s.States[n].OutEnd })
	}
	agg.NoOfEventsAvg, agg.NoOfEventsDev = meanStd(func(s sim.FinalizedStatistics) float64 { return float64(s.NoOfEvents) })
	return agg, nil
}

// MaxAbsDeviation returns the largest |StatesAverage[n].P - want[n]|.
// want must have V+1 entries.
func (a AggregatedStatistics) MaxAbsDeviation(want []float64) float64 {
	worst := 0.0
	for n, st := range a.StatesAverage {
		if n >= len(want) {
			break
		}
		d := st.P - want[n]
		if d < 0 {
			d = -d
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}
