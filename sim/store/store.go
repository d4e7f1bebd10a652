// Package store persists finalized series keyed by (traffic class, capacity)
// so later sweeps can reuse them instead of re-simulating.
package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/inference-sim/loss-sim/sim"
)

// Key returns the canonical lookup key of a cell. Floats are rendered in
// shortest round-trip form, so equal values always give equal keys.
func Key(model sim.ModelDescription) string {
	c := model.Class
	return strings.Join([]string{
		"a=" + formatFloat(c.A),
		"arr=" + strings.ToLower(c.ArrivalType.String()),
		"arr_e2d2=" + formatFloat(c.ArrivalE2D2),
		"serv=" + strings.ToLower(c.ServiceType.String()),
		"serv_e2d2=" + formatFloat(c.ServiceE2D2),
		"v=" + strconv.Itoa(model.V),
	}, "/")
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// Compatible reports whether a persisted series may stand in for a fresh one:
// its version must be at least minVersion (semantic versioning, an empty
// minimum accepts anything) and every occupancy level must have been observed
// at least minThreshold times.
func Compatible(md sim.Metadata, minVersion string, minThreshold uint64) bool {
	if md.MinEventsPerState < minThreshold {
		return false
	}
	if minVersion == "" {
		return true
	}
	have, want := canonicalVersion(md.Version), canonicalVersion(minVersion)
	if !semver.IsValid(have) || !semver.IsValid(want) {
		return false
	}
	return semver.Compare(have, want) >= 0
}

// ValidVersion reports whether v parses as a semantic version, with or
// without the leading "v".
func ValidVersion(v string) bool {
	return semver.IsValid(canonicalVersion(v))
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// Filter keeps the compatible series, preserving order.
func Filter(series []sim.FinalizedStatistics, minVersion string, minThreshold uint64) []sim.FinalizedStatistics {
	out := make([]sim.FinalizedStatistics, 0, len(series))
	for _, s := range series {
		if Compatible(s.Metadata, minVersion, minThreshold) {
			out = append(out, s)
		}
	}
	return out
}

// sqliteInt converts a counter for storage; SQLite integers are signed.
func sqliteInt(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("counter %d overflows sqlite integer", n)
	}
	return int64(n), nil
}
