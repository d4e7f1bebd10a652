package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/loss-sim/sim/traffic"
)

var (
	// CLI flags for fit
	fitStream    string  // Stream type
	fitIntensity float64 // 1/mean
	fitE2D2      float64 // mean²/variance
)

// fitCmd fits one stream and prints its parameters, so infeasible sweep
// points can be checked before running a sweep.
var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit a stream distribution and print its parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		setLogLevel()
		t, err := traffic.ParseStreamType(fitStream)
		if err != nil {
			return err
		}
		return printFit(cmd.OutOrStdout(), t, fitIntensity, fitE2D2)
	},
}

// printFit writes the fitted parameters, or a single infeasible line. Only
// errors other than infeasibility are returned.
func printFit(w io.Writer, t traffic.StreamType, intensity, e2d2 float64) error {
	s, err := traffic.FitStream(t, intensity, e2d2)
	if errors.Is(err, traffic.ErrInfeasible) {
		logrus.Debugf("fit %s: %v", t, err)
		_, werr := fmt.Fprintf(w, "infeasible: %v\n", err)
		return werr
	}
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s mean=%g variance=%g\n", s.Type, s.Mean, s.Variance); err != nil {
		return err
	}
	params := s.Params()
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if _, err := fmt.Fprintf(w, "  %s=%g\n", k, params[k]); err != nil {
			return err
		}
	}
	return nil
}
