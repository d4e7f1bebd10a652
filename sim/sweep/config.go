package sweep

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/inference-sim/loss-sim/sim"
	"github.com/inference-sim/loss-sim/sim/store"
	"github.com/inference-sim/loss-sim/sim/traffic"
)

// maxRangeValues bounds how many grid points one Range may expand to.
const maxRangeValues = 1_000_000

// gridDecimals is the precision grid values are rounded to, so that repeated
// sweeps produce identical store keys.
const gridDecimals = 1e9

// Range is an inclusive min..max grid with a fixed step. A zero step means
// the single value Min.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

// Single returns the one-point range {x}.
func Single(x float64) Range {
	return Range{Min: x, Max: x}
}

// Values expands the range. Points are computed as Min + i·Step (no running
// sum) and rounded to nine decimals; Max is included when it lies on the grid.
func (r Range) Values() []float64 {
	if r.Step == 0 || r.Min == r.Max {
		return []float64{roundGrid(r.Min)}
	}
	slack := 1e-9 * math.Max(1, math.Abs(r.Max))
	var out []float64
	for i := 0; ; i++ {
		x := r.Min + float64(i)*r.Step
		if x > r.Max+slack {
			break
		}
		out = append(out, roundGrid(x))
	}
	return out
}

func roundGrid(x float64) float64 {
	return math.Round(x*gridDecimals) / gridDecimals
}

func (r Range) validate(name string) error {
	for _, v := range []float64{r.Min, r.Max, r.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s: values must be finite, got min=%v max=%v step=%v", name, r.Min, r.Max, r.Step)
		}
	}
	if r.Min <= 0 {
		return fmt.Errorf("%s: min must be positive, got %v", name, r.Min)
	}
	if r.Max < r.Min {
		return fmt.Errorf("%s: max %v is below min %v", name, r.Max, r.Min)
	}
	if r.Step < 0 {
		return fmt.Errorf("%s: step must be >= 0, got %v", name, r.Step)
	}
	if r.Step == 0 && r.Max != r.Min {
		return fmt.Errorf("%s: step must be positive when max (%v) differs from min (%v)", name, r.Max, r.Min)
	}
	if r.Step > 0 && (r.Max-r.Min)/r.Step > maxRangeValues {
		return fmt.Errorf("%s: %v..%v by %v expands to more than %d values", name, r.Min, r.Max, r.Step, maxRangeValues)
	}
	return nil
}

// Config describes one parameter sweep.
type Config struct {
	ArrivalTypes []traffic.StreamType
	ServiceTypes []traffic.StreamType
	Load         Range // offered load a
	ArrivalE2D2  Range
	ServiceE2D2  Range
	MaxCapacity  int    // capacities 1..MaxCapacity are simulated for every class
	Threshold    uint64 // minimum outbound transitions per occupancy level
	Series       int    // independent repetitions per cell
	Workers      int    // tasks per batch
	Seed         int64  // 0 = non-reproducible sources
	MinVersion   string // oldest stored result version that may be reused; empty = any
	Run          sim.RunConfig
}

// DefaultConfig mirrors the command-line defaults.
func DefaultConfig(version string) Config {
	return Config{
		ArrivalTypes: []traffic.StreamType{traffic.Poisson},
		ServiceTypes: []traffic.StreamType{traffic.Poisson},
		Load:         Range{Min: 8, Max: 12, Step: 1},
		ArrivalE2D2:  Range{Min: 1, Max: 1, Step: 1},
		ServiceE2D2:  Range{Min: 1, Max: 1, Step: 1},
		MaxCapacity:  10,
		Threshold:    100,
		Series:       3,
		Workers:      runtime.NumCPU(),
		MinVersion:   version,
		Run:          sim.DefaultRunConfig(version),
	}
}

// Validate checks the sweep before any simulation starts.
func (c *Config) Validate() error {
	if len(c.ArrivalTypes) == 0 {
		return errors.New("at least one arrival stream type is required")
	}
	if len(c.ServiceTypes) == 0 {
		return errors.New("at least one service stream type is required")
	}
	for _, t := range append(append([]traffic.StreamType(nil), c.ArrivalTypes...), c.ServiceTypes...) {
		if _, err := t.MarshalText(); err != nil {
			return err
		}
	}
	if err := c.Load.validate("load"); err != nil {
		return err
	}
	if err := c.ArrivalE2D2.validate("arrival E²/D²"); err != nil {
		return err
	}
	if err := c.ServiceE2D2.validate("service E²/D²"); err != nil {
		return err
	}
	if c.MaxCapacity < 1 {
		return fmt.Errorf("capacity must be >= 1, got %d", c.MaxCapacity)
	}
	if c.Threshold < 1 {
		return fmt.Errorf("minimum state counter must be >= 1, got %d", c.Threshold)
	}
	if c.Series < 1 {
		return fmt.Errorf("series must be >= 1, got %d", c.Series)
	}
	if c.Workers < 1 {
		return fmt.Errorf("threads must be >= 1, got %d", c.Workers)
	}
	if c.MinVersion != "" && !store.ValidVersion(c.MinVersion) {
		return fmt.Errorf("minimum version %q is not a semantic version", c.MinVersion)
	}
	if err := c.Run.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}
