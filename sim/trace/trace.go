// Package trace records occupancy transitions of a single simulation run.
// This package has no dependencies on sim/ and stores pure data types.
package trace

// TraceLevel controls the verbosity of transition tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTransitions captures every admission, loss and release.
	TraceLevelTransitions TraceLevel = "transitions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:        true,
	TraceLevelTransitions: true,
	"":                    true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level      TraceLevel
	MaxRecords int // records kept per run; 0 means DefaultMaxRecords
}

// DefaultMaxRecords bounds a trace when TraceConfig.MaxRecords is unset.
const DefaultMaxRecords = 100_000

// Kind is the outcome of one transition.
type Kind string

const (
	KindAdmitted Kind = "admitted"
	KindLost     Kind = "lost"
	KindReleased Kind = "released"
)

// TransitionRecord captures one event applied to the group.
// Level is the occupancy before the event; Elapsed is the time spent there.
type TransitionRecord struct {
	Seq     int64
	Kind    Kind
	Level   int
	Elapsed float64
}

// SimulationTrace collects transition records up to a fixed bound. Records
// past the bound are counted in Dropped.
type SimulationTrace struct {
	Config      TraceConfig
	Transitions []TransitionRecord
	Dropped     int64
	seq         int64
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	if config.MaxRecords <= 0 {
		config.MaxRecords = DefaultMaxRecords
	}
	return &SimulationTrace{
		Config:      config,
		Transitions: make([]TransitionRecord, 0),
	}
}

// Enabled reports whether the config asks for any recording.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelTransitions
}

// RecordTransition appends a transition unless the bound is reached.
func (st *SimulationTrace) RecordTransition(kind Kind, level int, elapsed float64) {
	st.seq++
	if len(st.Transitions) >= st.Config.MaxRecords {
		st.Dropped++
		return
	}
	st.Transitions = append(st.Transitions, TransitionRecord{
		Seq:     st.seq,
		Kind:    kind,
		Level:   level,
		Elapsed: elapsed,
	})
}
