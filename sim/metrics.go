// Tracks per-occupancy-level statistics of one simulation run: raw
// accumulators while the run is collecting, and their normalized form once it
// stops.

package sim

import (
	"fmt"
	"math"

	"github.com/inference-sim/loss-sim/sim/traffic"
)

// EventType classifies a transition reported to the group.
type EventType int

const (
	// NewCall is an arrival that was admitted.
	NewCall EventType = iota
	// LostCall is an arrival that found every unit busy.
	LostCall
	// EndCall is a departure.
	EndCall
)

func (e EventType) String() string {
	switch e {
	case NewCall:
		return "NewCall"
	case LostCall:
		return "LostCall"
	case EndCall:
		return "EndCall"
	}
	return fmt.Sprintf("EventType(%d)", int(e))
}

// MacrostateRaw accumulates what happened while the group sat at one
// occupancy level.
type MacrostateRaw struct {
	Duration float64 // total sojourn time
	OutNew   uint64  // arrivals (admitted or lost) leaving this level
	OutEnd   uint64  // departures leaving this level
}

// Outbound returns the number of transitions observed out of the level.
func (m MacrostateRaw) Outbound() uint64 {
	return m.OutNew + m.OutEnd
}

// RawStatistics holds one MacrostateRaw per occupancy level 0..V.
type RawStatistics struct {
	TimeTotal float64
	States    []MacrostateRaw
}

// NewRawStatistics returns zeroed accumulators for a capacity-v group.
func NewRawStatistics(v int) *RawStatistics {
	return &RawStatistics{States: make([]MacrostateRaw, v+1)}
}

// Reset zeroes every accumulator.
func (r *RawStatistics) Reset() {
	r.TimeTotal = 0
	for i := range r.States {
		r.States[i] = MacrostateRaw{}
	}
}

// Record books elapsed time at level and counts the transition out of it.
func (r *RawStatistics) Record(ev EventType, level int, elapsed float64) {
	if level < 0 || level >= len(r.States) {
		panic(fmt.Sprintf("sim: occupancy level %d outside 0..%d", level, len(r.States)-1))
	}
	st := &r.States[level]
	st.Duration += elapsed
	r.TimeTotal += elapsed
	switch ev {
	case NewCall, LostCall:
		st.OutNew++
	case EndCall:
		st.OutEnd++
	default:
		panic(fmt.Sprintf("sim: unknown event type %d", int(ev)))
	}
}

// MinOutbound returns the smallest outbound transition count across levels.
// This is the convergence measure: every level must have been left often
// enough before its estimates are trusted.
func (r *RawStatistics) MinOutbound() uint64 {
	if len(r.States) == 0 {
		return 0
	}
	lowest := uint64(math.MaxUint64)
	for _, st := range r.States {
		if o := st.Outbound(); o < lowest {
			lowest = o
		}
	}
	return lowest
}

// Macrostate is the normalized summary of one occupancy level.
type Macrostate struct {
	P      float64 `json:"p"`       // occupancy probability
	OutNew float64 `json:"out_new"` // arrival-transition rate out of the level
	OutEnd float64 `json:"out_end"` // departure-transition rate out of the level
}

// Metadata describes how a FinalizedStatistics was produced.
type Metadata struct {
	MinEventsPerState uint64 `json:"min_events_per_state"`
	Threshold         uint64 `json:"threshold"`
	Converged         bool   `json:"converged"`
	UUID              string `json:"uuid"`
	Version           string `json:"version"`
}

// FinalizedStatistics is the immutable result of one series.
type FinalizedStatistics struct {
	States     []Macrostate `json:"states"`
	V          int          `json:"v"`
	NoOfEvents uint64       `json:"no_of_events"`
	Metadata   Metadata     `json:"metadata"`
}

// Finalize normalizes the accumulators against total simulated time.
// Levels never occupied get zero rates rather than NaN, and an empty run
// yields all zeros.
func (r *RawStatistics) Finalize(noOfEvents uint64, md Metadata) FinalizedStatistics {
	states := make([]Macrostate, len(r.States))
	for i, st := range r.States {
		var m Macrostate
		if r.TimeTotal > 0 {
			m.P = st.Duration / r.TimeTotal
		}
		if st.Duration > 0 {
			m.OutNew = float64(st.OutNew) / st.Duration
			m.OutEnd = float64(st.OutEnd) / st.Duration
		}
		states[i] = m
	}
	md.MinEventsPerState = r.MinOutbound()
	return FinalizedStatistics{
		States:     states,
		V:          len(r.States) - 1,
		NoOfEvents: noOfEvents,
		Metadata:   md,
	}
}

// ModelDescription identifies a (traffic class, capacity) cell. Stores key
// persisted series on it.
type ModelDescription struct {
	Class traffic.Descriptor `json:"class"`
	V     int                `json:"v"`
}

func (m ModelDescription) String() string {
	return fmt.Sprintf("%s V=%d", m.Class, m.V)
}
