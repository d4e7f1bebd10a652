package sim

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/loss-sim/sim/trace"
	"github.com/inference-sim/loss-sim/sim/traffic"
)

// Simulator runs one series of one (traffic class, capacity) cell.
//
// A run has two phases. WarmUp pops a capacity-scaled number of events with
// statistics off so the start-up transient is discarded. Collect then records
// every transition and stops once every occupancy level has been left at
// least threshold times, or once the lost-call safety stop trips.
//
// A Simulator is confined to one goroutine. The class is only read.
type Simulator struct {
	Group *Group
	// Trace is non-nil only when RunConfig.Trace enables recording.
	Trace *trace.SimulationTrace

	scheduler  *Scheduler
	class      *traffic.TrafficClass
	src        rand.Source
	cfg        RunConfig
	collecting bool
	lostCalls  uint64
	events     uint64
	threshold  uint64
	converged  bool
}

// NewSimulator builds a simulator with one arrival token scheduled.
func NewSimulator(class *traffic.TrafficClass, v int, cfg RunConfig, src rand.Source) (*Simulator, error) {
	if class == nil {
		return nil, errors.New("traffic class is required")
	}
	if v < 1 {
		return nil, fmt.Errorf("capacity must be >= 1, got %d", v)
	}
	if src == nil {
		return nil, errors.New("random source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	sched := NewScheduler()
	sched.rebaseThreshold = cfg.RebaseThreshold
	s := &Simulator{
		Group:     NewGroup(v),
		scheduler: sched,
		class:     class,
		src:       src,
		cfg:       cfg,
	}
	if cfg.Trace.Enabled() {
		s.Trace = trace.NewSimulationTrace(cfg.Trace)
	}
	s.Schedule(Event{State: AwaitingAdmission, Time: class.NextArrivalInterval(src)})
	return s, nil
}

// Schedule queues ev to fire ev.Time after the current instant.
func (sim *Simulator) Schedule(ev Event) {
	sim.scheduler.Schedule(ev)
}

// Pending returns the number of scheduled events.
func (sim *Simulator) Pending() int {
	return sim.scheduler.Len()
}

// LostCalls returns the number of lost calls since collection started.
func (sim *Simulator) LostCalls() uint64 {
	return sim.lostCalls
}

// Events returns the number of events processed since collection started.
func (sim *Simulator) Events() uint64 {
	return sim.events
}

// Converged reports whether the last Collect met its threshold.
func (sim *Simulator) Converged() bool {
	return sim.converged
}

func (sim *Simulator) step() {
	ev := sim.scheduler.PopNext()
	ev.Execute(sim)
	if sim.collecting {
		sim.events++
	}
}

// WarmUp pops WarmupEventsPerUnit × capacity events without recording.
func (sim *Simulator) WarmUp() {
	n := sim.cfg.WarmupEventsPerUnit * sim.Group.Capacity()
	for i := 0; i < n; i++ {
		sim.step()
	}
	logrus.Debugf("warm-up done after %d events, occupancy %d/%d", n, sim.Group.Occupancy(), sim.Group.Capacity())
}

// Collect resets the statistics and runs until every occupancy level has at
// least threshold outbound transitions. Termination is checked every
// CheckInterval events. Returns false when the lost-call safety stop ended
// the run first.
func (sim *Simulator) Collect(threshold uint64) bool {
	sim.Group.StartStatistics()
	sim.collecting = true
	sim.lostCalls = 0
	sim.events = 0
	sim.threshold = threshold
	sim.converged = false

	stats := sim.Group.Statistics()
	for {
		for i := 0; i < sim.cfg.CheckInterval; i++ {
			sim.step()
		}
		if stats.MinOutbound() >= threshold {
			sim.converged = true
			break
		}
		if sim.cfg.MaxLostCalls > 0 && sim.lostCalls >= uint64(sim.cfg.MaxLostCalls) {
			logrus.Debugf("safety stop after %d lost calls, min outbound %d < %d",
				sim.lostCalls, stats.MinOutbound(), threshold)
			break
		}
	}
	sim.collecting = false
	return sim.converged
}

// Finalize normalizes the collected statistics and stamps a fresh run id.
// It panics if Collect was never called.
func (sim *Simulator) Finalize() FinalizedStatistics {
	stats := sim.Group.Statistics()
	if stats == nil {
		panic("sim: Finalize before Collect")
	}
	return stats.Finalize(sim.events, Metadata{
		Threshold: sim.threshold,
		Converged: sim.converged,
		UUID:      uuid.NewString(),
		Version:   sim.cfg.Version,
	})
}

// Run performs warm-up, collection and finalization.
func (sim *Simulator) Run(threshold uint64) FinalizedStatistics {
	sim.WarmUp()
	sim.Collect(threshold)
	return sim.Finalize()
}

// record appends to the trace during collection. level is the occupancy
// before the transition.
func (sim *Simulator) record(kind trace.Kind, level int, elapsed float64) {
	if sim.Trace == nil || !sim.collecting {
		return
	}
	sim.Trace.RecordTransition(kind, level, elapsed)
	logrus.Tracef("%s at level %d after %.6f", kind, level, elapsed)
}
