package sweep

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/loss-sim/sim"
	"github.com/inference-sim/loss-sim/sim/report"
	"github.com/inference-sim/loss-sim/sim/stats"
	"github.com/inference-sim/loss-sim/sim/trace"
	"github.com/inference-sim/loss-sim/sim/traffic"
)

// ResultStore is the persistence capability the sweep needs. A nil store
// means every series is simulated and nothing is persisted.
type ResultStore interface {
	Find(ctx context.Context, model sim.ModelDescription, minVersion string, minThreshold uint64) ([]sim.FinalizedStatistics, error)
	Insert(ctx context.Context, model sim.ModelDescription, stats sim.FinalizedStatistics) error
}

// Task is one series of one cell.
type Task struct {
	Class     *traffic.TrafficClass
	Model     sim.ModelDescription
	Threshold uint64
	Series    int
	src       rand.Source
}

// Result is a finished Task.
type Result struct {
	Task    Task
	Stats   sim.FinalizedStatistics
	Elapsed time.Duration
	Err     error
}

// Summary is what a sweep reports besides the rows.
type Summary struct {
	report.Diagnostics
	Elapsed time.Duration
}

// Run executes the sweep and writes one report row per feasible class.
//
// Per class, stored compatible series are reused and only the missing ones
// are simulated. Tasks run in batches of cfg.Workers goroutines; a batch
// finishes completely before the next starts. Results are persisted and
// folded on the calling goroutine only, so the store sees no concurrent
// access. A failed insert is logged and counted; the result is still used.
//
// Cancelling ctx stops the sweep at the next batch boundary.
func Run(ctx context.Context, cfg Config, rs ResultStore, sink report.Sink) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, fmt.Errorf("invalid sweep: %w", err)
	}
	start := time.Now()
	plan := BuildPlan(cfg)

	var sum Summary
	sum.Cells = plan.Cells(cfg.MaxCapacity)
	sum.InfeasibleCells = len(plan.Infeasible)
	for _, inf := range plan.Infeasible {
		logrus.Warnf("skipping infeasible class %s", inf)
		sum.Infeasible = append(sum.Infeasible, inf.String())
		InfeasibleTotal.Inc()
	}
	logrus.Infof("sweep: %d classes × %d capacities × %d series, %d workers (%d infeasible classes skipped)",
		len(plan.Classes), cfg.MaxCapacity, cfg.Series, cfg.Workers, len(plan.Infeasible))

	if err := sink.WriteHeader(cfg.MaxCapacity); err != nil {
		return sum, fmt.Errorf("writing report header: %w", err)
	}

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	for _, class := range plan.Classes {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		row, err := runClass(ctx, cfg, class, rng, rs, &sum)
		if err != nil {
			return sum, err
		}
		if err := sink.WriteRow(row); err != nil {
			return sum, fmt.Errorf("writing report row for %s: %w", class.Descriptor(), err)
		}
	}

	sum.Elapsed = time.Since(start)
	if err := sink.WriteDiagnostics(sum.Diagnostics); err != nil {
		return sum, fmt.Errorf("writing report diagnostics: %w", err)
	}
	logrus.Infof("sweep done in %s: %d series simulated, %d reused, %d non-converged, %d persistence failures",
		sum.Elapsed.Round(time.Millisecond), sum.SimulatedSeries, sum.ReusedSeries, sum.NonConvergedRuns, sum.PersistenceFailures)
	return sum, nil
}

// cellState accumulates the series of one (class, capacity) cell.
type cellState struct {
	model   sim.ModelDescription
	series  []sim.FinalizedStatistics
	events  uint64
	elapsed time.Duration
}

func runClass(ctx context.Context, cfg Config, class *traffic.TrafficClass, rng *sim.PartitionedRNG,
	rs ResultStore, sum *Summary) (report.Row, error) {
	desc := class.Descriptor()
	cells := make([]*cellState, cfg.MaxCapacity+1)
	var tasks []Task
	for v := 1; v <= cfg.MaxCapacity; v++ {
		cell := &cellState{model: sim.ModelDescription{Class: desc, V: v}}
		cells[v] = cell
		cell.series = findExisting(ctx, cfg, rs, cell.model)
		sum.ReusedSeries += len(cell.series)
		SeriesTotal.WithLabelValues("reused").Add(float64(len(cell.series)))
		for i := len(cell.series); i < cfg.Series; i++ {
			tasks = append(tasks, Task{
				Class:     class,
				Model:     cell.model,
				Threshold: cfg.Threshold,
				Series:    i,
				// sources are derived here: PartitionedRNG is single-goroutine
				src: rng.ForSubsystem(sim.SubsystemSeries(cell.model, i)),
			})
		}
	}

	for len(tasks) > 0 {
		if err := ctx.Err(); err != nil {
			return report.Row{}, err
		}
		n := min(cfg.Workers, len(tasks))
		for _, res := range runBatch(tasks[:n], cfg.Run) {
			fold(ctx, cells[res.Task.Model.V], res, rs, sum)
		}
		tasks = tasks[n:]
	}

	row := report.Row{Class: desc, Results: make(map[int]stats.AggregatedStatistics, cfg.MaxCapacity)}
	for v := 1; v <= cfg.MaxCapacity; v++ {
		cell := cells[v]
		agg, err := stats.Aggregate(cell.series)
		if err != nil {
			// every task of this cell failed; the row keeps empty cells
			logrus.Errorf("cannot aggregate %s: %v", cell.model, err)
			continue
		}
		row.Results[v] = agg
		logProgress(cell, agg)
		if desc.ArrivalType == traffic.Poisson {
			logrus.Debugf("%s: max |p - Erlang| = %.3g", cell.model, agg.MaxAbsDeviation(traffic.ErlangDistribution(desc.A, v)))
		}
	}
	return row, nil
}

// findExisting returns at most cfg.Series reusable series for model. Store
// errors degrade to recomputing.
func findExisting(ctx context.Context, cfg Config, rs ResultStore, model sim.ModelDescription) []sim.FinalizedStatistics {
	if rs == nil {
		return nil
	}
	found, err := rs.Find(ctx, model, cfg.MinVersion, cfg.Threshold)
	if err != nil {
		logrus.Errorf("result store lookup for %s failed, recomputing: %v", model, err)
		return nil
	}
	if len(found) > cfg.Series {
		found = found[:cfg.Series]
	}
	return found
}

// runBatch executes every task on its own goroutine and waits for all.
func runBatch(batch []Task, runCfg sim.RunConfig) []Result {
	results := make([]Result, len(batch))
	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = execute(batch[i], runCfg)
		}(i)
	}
	wg.Wait()
	return results
}

func execute(t Task, runCfg sim.RunConfig) Result {
	start := time.Now()
	s, err := sim.NewSimulator(t.Class, t.Model.V, runCfg, t.src)
	if err != nil {
		return Result{Task: t, Err: err}
	}
	fs := s.Run(t.Threshold)
	if s.Trace != nil {
		ts := trace.Summarize(s.Trace)
		logrus.Debugf("trace of series %d of %s: %d admitted, %d lost, %d released, %d dropped",
			t.Series, t.Model, ts.AdmittedCount, ts.LostCount, ts.ReleasedCount, ts.Dropped)
	}
	return Result{Task: t, Stats: fs, Elapsed: time.Since(start)}
}

// fold persists a finished series and adds it to its cell.
func fold(ctx context.Context, cell *cellState, res Result, rs ResultStore, sum *Summary) {
	if res.Err != nil {
		logrus.Errorf("series %d of %s failed: %v", res.Task.Series, res.Task.Model, res.Err)
		return
	}
	sum.SimulatedSeries++
	SeriesTotal.WithLabelValues("simulated").Inc()
	EventsTotal.Add(float64(res.Stats.NoOfEvents))
	RunDuration.Observe(res.Elapsed.Seconds())

	if !res.Stats.Metadata.Converged {
		sum.NonConvergedRuns++
		NonConvergedTotal.Inc()
		logrus.Warnf("series %d of %s did not converge: min observations per state %d < %d",
			res.Task.Series, res.Task.Model, res.Stats.Metadata.MinEventsPerState, res.Task.Threshold)
	}
	if rs != nil {
		if err := rs.Insert(ctx, res.Task.Model, res.Stats); err != nil {
			sum.PersistenceFailures++
			PersistFailuresTotal.Inc()
			logrus.Errorf("persisting series %s of %s failed: %v", res.Stats.Metadata.UUID, res.Task.Model, err)
		}
	}
	cell.series = append(cell.series, res.Stats)
	cell.events += res.Stats.NoOfEvents
	cell.elapsed += res.Elapsed
}

func logProgress(cell *cellState, agg stats.AggregatedStatistics) {
	perf := 0.0
	if us := cell.elapsed.Microseconds(); us > 0 {
		perf = float64(cell.events) / float64(us)
	}
	logrus.Infof("simulation a=%.4f v=%d performance %.3f events/µs, no of events: %.0f",
		cell.model.Class.A, cell.model.V, perf, agg.NoOfEventsAvg)
}
