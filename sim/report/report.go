// Package report renders aggregated cell results as a tab-separated table.
//
// The column layout depends only on the maximum capacity: seven class
// columns, then for every metric block (p, δp, λ, δλ, µ, δµ) one column per
// (v, n) with v = 1..Vmax and n = 0..v. Capacities missing from a row render
// as empty cells, so every row has the same number of fields.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inference-sim/loss-sim/sim"
	"github.com/inference-sim/loss-sim/sim/stats"
	"github.com/inference-sim/loss-sim/sim/traffic"
)

// Row is one traffic class with its aggregated results per capacity.
type Row struct {
	Class   traffic.Descriptor
	Results map[int]stats.AggregatedStatistics
}

// Diagnostics summarizes what a sweep skipped or could not trust.
type Diagnostics struct {
	Cells               int
	InfeasibleCells     int
	NonConvergedRuns    int
	SimulatedSeries     int
	ReusedSeries        int
	PersistenceFailures int
	Infeasible          []string // one description per skipped class
}

// Sink consumes the report of one sweep.
type Sink interface {
	WriteHeader(vMax int) error
	WriteRow(row Row) error
	WriteDiagnostics(d Diagnostics) error
}

// ErrHeaderNotWritten is returned when a row precedes the header.
var ErrHeaderNotWritten = errors.New("report header not written")

type block struct {
	label string
	value func(avg, dev sim.Macrostate) float64
}

var blocks = []block{
	{"p", func(avg, _ sim.Macrostate) float64 { return avg.P }},
	{"δ p", func(_, dev sim.Macrostate) float64 { return dev.P }},
	{"λ", func(avg, _ sim.Macrostate) float64 { return avg.OutNew }},
	{"δ λ", func(_, dev sim.Macrostate) float64 { return dev.OutNew }},
	{"µ", func(avg, _ sim.Macrostate) float64 { return avg.OutEnd }},
	{"δ µ", func(_, dev sim.Macrostate) float64 { return dev.OutEnd }},
}

var classColumns = []string{"#A", "Arrival Id", "Arrival desc", "E²/D²", "Serv Id", "Serv desc", "E²/D²"}

// TSVWriter is a Sink writing tab-separated text. Each call flushes.
type TSVWriter struct {
	w    *bufio.Writer
	vMax int
}

// NewTSVWriter wraps out. The caller closes out.
func NewTSVWriter(out io.Writer) *TSVWriter {
	return &TSVWriter{w: bufio.NewWriter(out)}
}

// Columns returns the number of fields in every line for vMax.
func Columns(vMax int) int {
	perBlock := 0
	for v := 1; v <= vMax; v++ {
		perBlock += v + 1
	}
	return len(classColumns) + len(blocks)*perBlock
}

// WriteHeader fixes the layout and writes the header line.
func (t *TSVWriter) WriteHeader(vMax int) error {
	if vMax < 1 {
		return fmt.Errorf("maximum capacity must be >= 1, got %d", vMax)
	}
	t.vMax = vMax
	fields := append(make([]string, 0, Columns(vMax)), classColumns...)
	for _, b := range blocks {
		for v := 1; v <= vMax; v++ {
			for n := 0; n <= v; n++ {
				fields = append(fields, fmt.Sprintf("%s[%d]_%d", b.label, n, v))
			}
		}
	}
	return t.writeLine(fields)
}

// WriteRow writes one class.
func (t *TSVWriter) WriteRow(row Row) error {
	if t.vMax == 0 {
		return ErrHeaderNotWritten
	}
	c := row.Class
	fields := make([]string, 0, Columns(t.vMax))
	fields = append(fields,
		strconv.FormatFloat(c.A, 'f', 4, 64),
		strconv.Itoa(c.ArrivalType.ID()), c.ArrivalType.String(), formatFloat(c.ArrivalE2D2),
		strconv.Itoa(c.ServiceType.ID()), c.ServiceType.String(), formatFloat(c.ServiceE2D2),
	)
	for _, b := range blocks {
		for v := 1; v <= t.vMax; v++ {
			agg, ok := row.Results[v]
			for n := 0; n <= v; n++ {
				if !ok || n >= len(agg.StatesAverage) || n >= len(agg.StatesDeviation) {
					fields = append(fields, "")
					continue
				}
				fields = append(fields, formatFloat(b.value(agg.StatesAverage[n], agg.StatesDeviation[n])))
			}
		}
	}
	return t.writeLine(fields)
}

// WriteDiagnostics appends '#'-prefixed footer lines.
func (t *TSVWriter) WriteDiagnostics(d Diagnostics) error {
	lines := []string{
		fmt.Sprintf("# cells: %d", d.Cells),
		fmt.Sprintf("# infeasible classes: %d", d.InfeasibleCells),
		fmt.Sprintf("# simulated series: %d", d.SimulatedSeries),
		fmt.Sprintf("# reused series: %d", d.ReusedSeries),
		fmt.Sprintf("# non-converged runs: %d", d.NonConvergedRuns),
		fmt.Sprintf("# persistence failures: %d", d.PersistenceFailures),
	}
	for _, desc := range d.Infeasible {
		lines = append(lines, "# infeasible: "+desc)
	}
	for _, l := range lines {
		if _, err := t.w.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return t.w.Flush()
}

func (t *TSVWriter) writeLine(fields []string) error {
	if _, err := t.w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
		return err
	}
	return t.w.Flush()
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
