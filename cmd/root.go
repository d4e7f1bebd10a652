package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/loss-sim/sim/report"
	"github.com/inference-sim/loss-sim/sim/sweep"
	"github.com/inference-sim/loss-sim/sim/traffic"
)

// Version is stamped into every persisted result and compared against
// --min-version when reusing stored series.
var Version = "v0.3.0"

var (
	// CLI flags for the sweep
	outputPath      string   // Report file
	maxCapacity     int      // Largest simulated capacity V
	aMin            float64  // Smallest offered load
	aMax            float64  // Largest offered load
	aDelta          float64  // Offered load step
	callStreams     []string // Arrival stream families
	servStreams     []string // Service stream families
	csE2D2Min       float64  // Arrival E²/D² range
	csE2D2Max       float64  //
	csE2D2Step      float64  //
	ssE2D2Min       float64  // Service E²/D² range
	ssE2D2Max       float64  //
	ssE2D2Step      float64  //
	minStateCounter uint64   // Convergence threshold per occupancy level
	series          int      // Independent series per cell
	threads         int      // Worker goroutines per batch
	seed            int64    // 0 = non-reproducible
	logLevel        string   // Log verbosity level
	maxLostCalls    int64    // Safety stop while collecting
	configPath      string   // Optional YAML sweep file

	// CLI flags for result storage and metrics
	storeKind   string // none, memory, sqlite or redis
	sqlitePath  string // SQLite database file
	redisAddr   string // Redis host:port
	minVersion  string // Oldest reusable result version
	metricsAddr string // Prometheus listen address; empty disables
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "loss-sim",
	Short: "Discrete-event simulator for finite-capacity loss systems",
}

// runCmd executes a parameter sweep using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a parameter sweep and write the report",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		cfg, out, err := buildSweepConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid sweep configuration: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rs, closeStore, err := openStore(ctx, out.store)
		if err != nil {
			logrus.Fatalf("Failed to open result store: %v", err)
		}
		defer func() {
			if err := closeStore(); err != nil {
				logrus.Warnf("closing result store: %v", err)
			}
		}()

		if out.metricsAddr != "" {
			srv := startMetricsServer(out.metricsAddr)
			defer srv.Close()
		}

		file, err := os.Create(out.path)
		if err != nil {
			logrus.Fatalf("Failed to create report file: %v", err)
		}
		defer file.Close()

		logrus.Infof("Starting sweep, report=%s store=%s version=%s", out.path, out.store.kind, Version)
		sum, err := sweep.Run(ctx, cfg, rs, report.NewTSVWriter(file))
		if errors.Is(err, context.Canceled) {
			logrus.Warnf("Sweep interrupted after %d simulated series; the report is incomplete", sum.SimulatedSeries)
			return
		}
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
		if sum.InfeasibleCells > 0 || sum.NonConvergedRuns > 0 || sum.PersistenceFailures > 0 {
			logrus.Warnf("Sweep finished with %d infeasible classes, %d non-converged runs, %d persistence failures",
				sum.InfeasibleCells, sum.NonConvergedRuns, sum.PersistenceFailures)
		}
		logrus.Info("Done")
	},
}

// versionCmd prints the tool version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version stamped into results",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runOutputs are the run settings that are not part of sweep.Config.
type runOutputs struct {
	path        string
	metricsAddr string
	store       storeOptions
}

// buildSweepConfig merges defaults, the optional sweep file and flags. A flag
// overrides the file only when set explicitly.
func buildSweepConfig(cmd *cobra.Command) (sweep.Config, runOutputs, error) {
	cfg := sweep.DefaultConfig(Version)
	out := runOutputs{
		path:        outputPath,
		metricsAddr: metricsAddr,
		store:       storeOptions{kind: storeKind, sqlitePath: sqlitePath, redisAddr: redisAddr},
	}

	var file *SweepFile
	if configPath != "" {
		f, err := LoadSweepFile(configPath)
		if err != nil {
			return cfg, out, err
		}
		file = f
	}
	// use returns true when the flag value should be taken over the file.
	use := func(name string) bool {
		return file == nil || cmd.Flags().Changed(name)
	}

	if file != nil {
		if err := file.ApplyTo(&cfg, &out); err != nil {
			return cfg, out, err
		}
	}

	if use("call-stream") {
		types, err := parseStreamTypes(callStreams)
		if err != nil {
			return cfg, out, fmt.Errorf("--call-stream: %w", err)
		}
		cfg.ArrivalTypes = types
	}
	if use("serv-stream") {
		types, err := parseStreamTypes(servStreams)
		if err != nil {
			return cfg, out, fmt.Errorf("--serv-stream: %w", err)
		}
		cfg.ServiceTypes = types
	}
	if use("a-min") || use("a-max") || use("a-delta") {
		cfg.Load = mergeRange(cfg.Load, cmd, "a-min", aMin, "a-max", aMax, "a-delta", aDelta, file == nil)
	}
	if use("cs-e2d2-min") || use("cs-e2d2-max") || use("cs-e2d2-step") {
		cfg.ArrivalE2D2 = mergeRange(cfg.ArrivalE2D2, cmd, "cs-e2d2-min", csE2D2Min, "cs-e2d2-max", csE2D2Max, "cs-e2d2-step", csE2D2Step, file == nil)
	}
	if use("ss-e2d2-min") || use("ss-e2d2-max") || use("ss-e2d2-step") {
		cfg.ServiceE2D2 = mergeRange(cfg.ServiceE2D2, cmd, "ss-e2d2-min", ssE2D2Min, "ss-e2d2-max", ssE2D2Max, "ss-e2d2-step", ssE2D2Step, file == nil)
	}
	if use("capacity") {
		cfg.MaxCapacity = maxCapacity
	}
	if use("min-state-cntr") {
		cfg.Threshold = minStateCounter
	}
	if use("series") {
		cfg.Series = series
	}
	if use("threads") {
		cfg.Workers = threads
	}
	if use("seed") {
		cfg.Seed = seed
	}
	if use("min-version") {
		cfg.MinVersion = minVersion
	}
	if use("max-lost-calls") {
		cfg.Run.MaxLostCalls = maxLostCalls
	}
	if use("output") {
		out.path = outputPath
	}
	if use("metrics-addr") {
		out.metricsAddr = metricsAddr
	}
	if use("store") {
		out.store.kind = storeKind
	}
	if use("sqlite-path") {
		out.store.sqlitePath = sqlitePath
	}
	if use("redis-addr") {
		out.store.redisAddr = redisAddr
	}

	if err := cfg.Validate(); err != nil {
		return cfg, out, err
	}
	return cfg, out, nil
}

// mergeRange overrides only the range bounds whose flags were set, or all of
// them when there is no sweep file.
func mergeRange(r sweep.Range, cmd *cobra.Command, minName string, minVal float64,
	maxName string, maxVal float64, stepName string, stepVal float64, all bool) sweep.Range {
	if all || cmd.Flags().Changed(minName) {
		r.Min = minVal
	}
	if all || cmd.Flags().Changed(maxName) {
		r.Max = maxVal
	}
	if all || cmd.Flags().Changed(stepName) {
		r.Step = stepVal
	}
	return r
}

func parseStreamTypes(names []string) ([]traffic.StreamType, error) {
	types := make([]traffic.StreamType, 0, len(names))
	for _, n := range names {
		// accept both repeated flags and comma-separated lists
		for _, part := range strings.Split(n, ",") {
			t, err := traffic.ParseStreamType(part)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
	}
	return types, nil
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("metrics server on %s: %v", addr, err)
		}
	}()
	logrus.Infof("Serving metrics on %s/metrics", addr)
	return srv
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	def := sweep.DefaultConfig(Version)

	runCmd.Flags().StringVarP(&outputPath, "output", "o", "results.txt", "Report file")
	runCmd.Flags().IntVarP(&maxCapacity, "capacity", "v", def.MaxCapacity, "Largest capacity V; capacities 1..V are simulated")
	runCmd.Flags().Float64Var(&aMin, "a-min", def.Load.Min, "Smallest offered load")
	runCmd.Flags().Float64Var(&aMax, "a-max", def.Load.Max, "Largest offered load")
	runCmd.Flags().Float64Var(&aDelta, "a-delta", def.Load.Step, "Offered load step")
	runCmd.Flags().StringSliceVar(&callStreams, "call-stream", []string{"poisson"}, "Arrival stream type (poisson, uniform, gamma, pareto); repeatable")
	runCmd.Flags().StringSliceVar(&servStreams, "serv-stream", []string{"poisson"}, "Service stream type (poisson, uniform, gamma, pareto); repeatable")
	runCmd.Flags().Float64Var(&csE2D2Min, "cs-e2d2-min", def.ArrivalE2D2.Min, "Smallest arrival E²/D²")
	runCmd.Flags().Float64Var(&csE2D2Max, "cs-e2d2-max", def.ArrivalE2D2.Max, "Largest arrival E²/D²")
	runCmd.Flags().Float64Var(&csE2D2Step, "cs-e2d2-step", def.ArrivalE2D2.Step, "Arrival E²/D² step")
	runCmd.Flags().Float64Var(&ssE2D2Min, "ss-e2d2-min", def.ServiceE2D2.Min, "Smallest service E²/D²")
	runCmd.Flags().Float64Var(&ssE2D2Max, "ss-e2d2-max", def.ServiceE2D2.Max, "Largest service E²/D²")
	runCmd.Flags().Float64Var(&ssE2D2Step, "ss-e2d2-step", def.ServiceE2D2.Step, "Service E²/D² step")
	runCmd.Flags().Uint64VarP(&minStateCounter, "min-state-cntr", "n", def.Threshold, "Minimum outbound transitions per occupancy level")
	runCmd.Flags().IntVar(&series, "series", def.Series, "Independent series per (class, capacity) cell")
	runCmd.Flags().IntVar(&threads, "threads", runtime.NumCPU(), "Worker goroutines per batch")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Sweep seed; 0 draws fresh random sources")
	runCmd.Flags().Int64Var(&maxLostCalls, "max-lost-calls", def.Run.MaxLostCalls, "Stop a run after this many lost calls (0 disables)")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML sweep file; explicitly set flags override it")

	runCmd.Flags().StringVar(&storeKind, "store", "none", "Result store (none, memory, sqlite, redis)")
	runCmd.Flags().StringVar(&sqlitePath, "sqlite-path", "results.db", "SQLite database for --store=sqlite")
	runCmd.Flags().StringVar(&redisAddr, "redis-addr", "localhost:6379", "Redis address for --store=redis")
	runCmd.Flags().StringVar(&minVersion, "min-version", Version, "Oldest result version that may be reused")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the sweep")

	fitCmd.Flags().StringVar(&fitStream, "stream", "poisson", "Stream type (poisson, uniform, gamma, pareto)")
	fitCmd.Flags().Float64Var(&fitIntensity, "intensity", 1, "Stream intensity (1/mean)")
	fitCmd.Flags().Float64Var(&fitE2D2, "e2d2", 1, "Squared mean over variance")
	fitCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(versionCmd)
}
