package sim

import "container/heap"

// DefaultRebaseThreshold is the offset (2^20 time units) past which the
// scheduler subtracts the offset from every pending event.
const DefaultRebaseThreshold = 1 << 20

// eventQueue implements heap.Interface and orders events by stored time.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventQueue []Event

func (eq eventQueue) Len() int           { return len(eq) }
func (eq eventQueue) Less(i, j int) bool { return eq[i].Time < eq[j].Time }
func (eq eventQueue) Swap(i, j int)      { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventQueue) Push(x any) {
	*eq = append(*eq, x.(Event))
}

func (eq *eventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// Scheduler is the simulation agenda. Pending events store time relative to a
// base instant; offset is the current instant measured from that base. Keeping
// the base recent bounds the magnitude of stored times, and so the precision
// lost to floating-point addition, over arbitrarily long runs.
//
// Externally all times are relative: Schedule takes a delay from now and
// PopNext returns the time elapsed since the previous pop. Ties pop in an
// unspecified order.
type Scheduler struct {
	agenda          eventQueue
	offset          float64
	rebaseThreshold float64
}

// NewScheduler returns an empty agenda with the default rebase threshold.
func NewScheduler() *Scheduler {
	return &Scheduler{
		agenda:          make(eventQueue, 0, 64),
		rebaseThreshold: DefaultRebaseThreshold,
	}
}

// Schedule inserts ev to fire ev.Time after the current instant.
func (s *Scheduler) Schedule(ev Event) {
	ev.Time += s.offset
	heap.Push(&s.agenda, ev)
}

// PopNext removes the earliest event and advances the current instant to it.
// The returned event's Time is the delay since the previous pop.
// Popping an empty agenda is a logic error and panics.
func (s *Scheduler) PopNext() Event {
	if len(s.agenda) == 0 {
		panic("sim: PopNext on empty agenda")
	}
	ev := heap.Pop(&s.agenda).(Event)
	ev.Time -= s.offset
	s.offset += ev.Time
	if s.offset > s.rebaseThreshold {
		s.rebase()
	}
	return ev
}

// Len returns the number of pending events.
func (s *Scheduler) Len() int {
	return len(s.agenda)
}

// rebase moves the base instant to now. Subtracting a constant keeps the heap
// ordered, so no re-heapify is needed.
func (s *Scheduler) rebase() {
	for i := range s.agenda {
		s.agenda[i].Time -= s.offset
	}
	s.offset = 0
}
