package trace

import "testing"

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"none", true},
		{"transitions", true},
		{"", true},
		{"decisions", false},
		{"verbose", false},
	}
	for _, tc := range tests {
		if got := IsValidTraceLevel(tc.level); got != tc.want {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestNewSimulationTrace_DefaultBound(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelTransitions})
	if st.Config.MaxRecords != DefaultMaxRecords {
		t.Errorf("expected default bound %d, got %d", DefaultMaxRecords, st.Config.MaxRecords)
	}
	if st.Transitions == nil {
		t.Error("expected non-nil transitions slice")
	}
}

func TestRecordTransition_BoundReached_CountsDropped(t *testing.T) {
	// GIVEN a trace bounded to 2 records
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelTransitions, MaxRecords: 2})

	// WHEN 5 transitions are recorded
	for i := 0; i < 5; i++ {
		st.RecordTransition(KindAdmitted, i, 1)
	}

	// THEN only the first 2 are kept and the rest are counted
	if len(st.Transitions) != 2 {
		t.Fatalf("expected 2 records, got %d", len(st.Transitions))
	}
	if st.Dropped != 3 {
		t.Errorf("expected 3 dropped, got %d", st.Dropped)
	}
	if st.Transitions[1].Seq != 2 || st.Transitions[1].Level != 1 {
		t.Errorf("unexpected second record %+v", st.Transitions[1])
	}
}

func TestTraceConfig_Enabled(t *testing.T) {
	if (TraceConfig{}).Enabled() {
		t.Error("zero config must be disabled")
	}
	if (TraceConfig{Level: TraceLevelNone}).Enabled() {
		t.Error("none must be disabled")
	}
	if !(TraceConfig{Level: TraceLevelTransitions}).Enabled() {
		t.Error("transitions must be enabled")
	}
}
