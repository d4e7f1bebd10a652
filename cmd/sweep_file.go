package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/loss-sim/sim/sweep"
	"github.com/inference-sim/loss-sim/sim/trace"
	"github.com/inference-sim/loss-sim/sim/traffic"
)

// SweepFile is the YAML form of a sweep. Every field is optional; absent
// fields keep the command-line value.
type SweepFile struct {
	Output       string               `yaml:"output"`
	Capacity     *int                 `yaml:"capacity"`
	ArrivalTypes []traffic.StreamType `yaml:"call_streams"`
	ServiceTypes []traffic.StreamType `yaml:"serv_streams"`
	Load         *RangeSpec           `yaml:"load"`
	ArrivalE2D2  *RangeSpec           `yaml:"call_e2d2"`
	ServiceE2D2  *RangeSpec           `yaml:"serv_e2d2"`
	Threshold    *uint64              `yaml:"min_state_cntr"`
	Series       *int                 `yaml:"series"`
	Threads      *int                 `yaml:"threads"`
	Seed         *int64               `yaml:"seed"`
	MinVersion   *string              `yaml:"min_version"`
	MetricsAddr  string               `yaml:"metrics_addr"`
	Store        *StoreSpec           `yaml:"store"`
	Engine       *EngineSpec          `yaml:"engine"`
}

// RangeSpec is an inclusive min..max grid. Step may be omitted for a single value.
type RangeSpec struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

// StoreSpec selects the result store backend.
type StoreSpec struct {
	Kind       string `yaml:"kind"`
	SQLitePath string `yaml:"sqlite_path"`
	RedisAddr  string `yaml:"redis_addr"`
}

// EngineSpec tunes individual runs.
type EngineSpec struct {
	WarmupEventsPerUnit *int     `yaml:"warmup_events_per_unit"`
	CheckInterval       *int     `yaml:"check_interval"`
	MaxLostCalls        *int64   `yaml:"max_lost_calls"`
	RebaseThreshold     *float64 `yaml:"rebase_threshold"`
	TraceLevel          string   `yaml:"trace_level"`
	TraceMaxRecords     *int     `yaml:"trace_max_records"`
}

// LoadSweepFile parses a sweep file with strict field checking, so a
// misspelled key is an error rather than a silently ignored setting.
func LoadSweepFile(path string) (*SweepFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sweep file: %w", err)
	}
	var f SweepFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing sweep file %s: %w", path, err)
	}
	return &f, nil
}

func (r *RangeSpec) toRange() sweep.Range {
	if r.Max == 0 && r.Step == 0 {
		return sweep.Single(r.Min)
	}
	return sweep.Range{Min: r.Min, Max: r.Max, Step: r.Step}
}

// ApplyTo overlays the fields present in the file onto cfg and out.
func (f *SweepFile) ApplyTo(cfg *sweep.Config, out *runOutputs) error {
	if f.Output != "" {
		out.path = f.Output
	}
	if f.MetricsAddr != "" {
		out.metricsAddr = f.MetricsAddr
	}
	if f.Capacity != nil {
		cfg.MaxCapacity = *f.Capacity
	}
	if len(f.ArrivalTypes) > 0 {
		cfg.ArrivalTypes = f.ArrivalTypes
	}
	if len(f.ServiceTypes) > 0 {
		cfg.ServiceTypes = f.ServiceTypes
	}
	if f.Load != nil {
		cfg.Load = f.Load.toRange()
	}
	if f.ArrivalE2D2 != nil {
		cfg.ArrivalE2D2 = f.ArrivalE2D2.toRange()
	}
	if f.ServiceE2D2 != nil {
		cfg.ServiceE2D2 = f.ServiceE2D2.toRange()
	}
	if f.Threshold != nil {
		cfg.Threshold = *f.Threshold
	}
	if f.Series != nil {
		cfg.Series = *f.Series
	}
	if f.Threads != nil {
		cfg.Workers = *f.Threads
	}
	if f.Seed != nil {
		cfg.Seed = *f.Seed
	}
	if f.MinVersion != nil {
		cfg.MinVersion = *f.MinVersion
	}
	if s := f.Store; s != nil {
		if s.Kind != "" {
			out.store.kind = s.Kind
		}
		if s.SQLitePath != "" {
			out.store.sqlitePath = s.SQLitePath
		}
		if s.RedisAddr != "" {
			out.store.redisAddr = s.RedisAddr
		}
	}
	if e := f.Engine; e != nil {
		if e.WarmupEventsPerUnit != nil {
			cfg.Run.WarmupEventsPerUnit = *e.WarmupEventsPerUnit
		}
		if e.CheckInterval != nil {
			cfg.Run.CheckInterval = *e.CheckInterval
		}
		if e.MaxLostCalls != nil {
			cfg.Run.MaxLostCalls = *e.MaxLostCalls
		}
		if e.RebaseThreshold != nil {
			cfg.Run.RebaseThreshold = *e.RebaseThreshold
		}
		if e.TraceLevel != "" {
			if !trace.IsValidTraceLevel(e.TraceLevel) {
				return fmt.Errorf("unknown trace level %q", e.TraceLevel)
			}
			cfg.Run.Trace.Level = trace.TraceLevel(e.TraceLevel)
		}
		if e.TraceMaxRecords != nil {
			cfg.Run.Trace.MaxRecords = *e.TraceMaxRecords
		}
	}
	return nil
}
