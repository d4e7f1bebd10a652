package sim

import "fmt"

// Group is a resource pool of capacity V. Occupancy (V - free) ranges over
// 0..V. When statistics are active every transition is recorded against the
// occupancy level it leaves.
type Group struct {
	capacity int
	free     int
	stats    *RawStatistics
}

// NewGroup returns an idle pool with all units free. A pool with no units
// can never admit and is rejected.
func NewGroup(capacity int) *Group {
	if capacity < 1 {
		panic(fmt.Sprintf("sim: group capacity must be positive, got %d", capacity))
	}
	return &Group{capacity: capacity, free: capacity}
}

// TryAdmit takes one unit if any is free. elapsed is the time spent at the
// current occupancy level since the previous transition. Returns false when
// the call is lost.
func (g *Group) TryAdmit(elapsed float64) bool {
	level := g.capacity - g.free
	if g.free > 0 {
		g.recordTransition(NewCall, level, elapsed)
		g.free--
		return true
	}
	g.recordTransition(LostCall, level, elapsed)
	return false
}

// Release returns one unit. Releasing with every unit free means a release
// token was created without an admission and panics.
func (g *Group) Release(elapsed float64) {
	if g.free >= g.capacity {
		panic(fmt.Sprintf("sim: release on idle group (free=%d, capacity=%d)", g.free, g.capacity))
	}
	g.recordTransition(EndCall, g.capacity-g.free, elapsed)
	g.free++
}

// StartStatistics discards anything recorded so far and starts recording.
func (g *Group) StartStatistics() {
	if g.stats == nil {
		g.stats = NewRawStatistics(g.capacity)
		return
	}
	g.stats.Reset()
}

// Statistics returns the raw accumulators, nil before StartStatistics.
func (g *Group) Statistics() *RawStatistics {
	return g.stats
}

func (g *Group) Capacity() int  { return g.capacity }
func (g *Group) Free() int      { return g.free }
func (g *Group) Occupancy() int { return g.capacity - g.free }

func (g *Group) recordTransition(ev EventType, level int, elapsed float64) {
	if g.stats != nil {
		g.stats.Record(ev, level, elapsed)
	}
}
