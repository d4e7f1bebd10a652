package sim

import (
	"fmt"

	"github.com/inference-sim/loss-sim/sim/trace"
)

// EventState is the phase of a call token.
type EventState int

const (
	// AwaitingAdmission is the renewal arrival stream: when it fires a call
	// attempts admission and the token reschedules itself.
	AwaitingAdmission EventState = iota
	// AwaitingRelease is an admitted call holding one unit until it fires.
	AwaitingRelease
)

func (s EventState) String() string {
	switch s {
	case AwaitingAdmission:
		return "AwaitingAdmission"
	case AwaitingRelease:
		return "AwaitingRelease"
	}
	return fmt.Sprintf("EventState(%d)", int(s))
}

// Event is a call token. Time is relative: when scheduled it is the delay
// from the current instant, when popped it is the time elapsed since the
// previous event (see Scheduler).
type Event struct {
	State EventState
	Time  float64
}

// Timestamp returns the event's (relative) time.
func (e Event) Timestamp() float64 {
	return e.Time
}

// Execute fires the token against the simulator's group.
//
// An arrival always reschedules itself, so the model holds exactly one
// arrival token; admitted calls spawn one release token each.
func (e Event) Execute(sim *Simulator) {
	level := sim.Group.Occupancy()
	switch e.State {
	case AwaitingAdmission:
		if sim.Group.TryAdmit(e.Time) {
			sim.Schedule(Event{State: AwaitingRelease, Time: sim.class.NextServiceDuration(sim.src)})
			sim.record(trace.KindAdmitted, level, e.Time)
		} else {
			sim.lostCalls++
			sim.record(trace.KindLost, level, e.Time)
		}
		sim.Schedule(Event{State: AwaitingAdmission, Time: sim.class.NextArrivalInterval(sim.src)})
	case AwaitingRelease:
		sim.Group.Release(e.Time)
		sim.record(trace.KindReleased, level, e.Time)
	default:
		panic(fmt.Sprintf("sim: executing event in unknown state %d", int(e.State)))
	}
}
