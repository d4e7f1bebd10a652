package sim

import (
	"fmt"

	"github.com/inference-sim/loss-sim/sim/trace"
)

// RunConfig groups the engine tunables of one simulation run.
type RunConfig struct {
	WarmupEventsPerUnit int               // warm-up pops per unit of capacity (default 10000)
	CheckInterval       int               // events between convergence checks (default 100)
	MaxLostCalls        int64             // safety stop on lost calls while collecting; <= 0 disables
	RebaseThreshold     float64           // scheduler offset that triggers a rebase (default 2^20)
	Version             string            // tool version stamped into every result
	Trace               trace.TraceConfig // optional transition trace
}

// DefaultRunConfig returns the engine defaults stamped with the given version.
func DefaultRunConfig(version string) RunConfig {
	return RunConfig{
		WarmupEventsPerUnit: 10_000,
		CheckInterval:       100,
		MaxLostCalls:        100_000,
		RebaseThreshold:     DefaultRebaseThreshold,
		Version:             version,
		Trace:               trace.TraceConfig{Level: trace.TraceLevelNone},
	}
}

// Validate rejects tunables that would stall or skip the run loop.
func (c RunConfig) Validate() error {
	if c.WarmupEventsPerUnit < 0 {
		return fmt.Errorf("warm-up events per unit must be >= 0, got %d", c.WarmupEventsPerUnit)
	}
	if c.CheckInterval < 1 {
		return fmt.Errorf("check interval must be >= 1, got %d", c.CheckInterval)
	}
	if !(c.RebaseThreshold > 0) {
		return fmt.Errorf("rebase threshold must be > 0, got %v", c.RebaseThreshold)
	}
	if !trace.IsValidTraceLevel(string(c.Trace.Level)) {
		return fmt.Errorf("unknown trace level %q", c.Trace.Level)
	}
	return nil
}
