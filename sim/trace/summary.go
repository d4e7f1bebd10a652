package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTransitions int
	AdmittedCount    int
	LostCount        int
	ReleasedCount    int
	Dropped          int64
	MaxLevel         int
	TimeAtLevel      map[int]float64 // occupancy → summed elapsed time
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		TimeAtLevel: make(map[int]float64),
	}
	if st == nil {
		return summary
	}

	summary.TotalTransitions = len(st.Transitions)
	summary.Dropped = st.Dropped
	for _, r := range st.Transitions {
		switch r.Kind {
		case KindAdmitted:
			summary.AdmittedCount++
		case KindLost:
			summary.LostCount++
		case KindReleased:
			summary.ReleasedCount++
		}
		summary.TimeAtLevel[r.Level] += r.Elapsed
		if r.Level > summary.MaxLevel {
			summary.MaxLevel = r.Level
		}
	}
	return summary
}
