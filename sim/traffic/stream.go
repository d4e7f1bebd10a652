// Package traffic fits the arrival and service streams of a loss system from a
// nominal intensity and an E²/D² shape parameter, and samples them.
//
// A stream is described by its intensity λ (mean = 1/λ) and by E²/D², the
// squared mean over the variance (the inverse of the squared coefficient of
// variation). Four families are supported:
//   - Poisson: exponential intervals; only E²/D² = 1 is representable.
//   - Uniform: symmetric around the mean; E²/D² < 3 would need negative times.
//   - Gamma: any positive E²/D² (shape = E²/D²).
//   - Pareto: any positive E²/D² (α = 1 + sqrt(1 + E²/D²) > 2).
package traffic

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInfeasible marks a (family, intensity, E²/D²) combination that no
// distribution of the family can reproduce. Callers skip such cells.
var ErrInfeasible = errors.New("infeasible stream parameters")

// ParetoFitTolerance is the relative tolerance of the Pareto round-trip check
// (mean and variance recomputed from the fitted α, x_m against the targets).
const ParetoFitTolerance = 1e-3

// poissonShapeTolerance bounds the relative mismatch between the requested
// variance and mean² accepted for a Poisson stream.
const poissonShapeTolerance = 1e-9

// StreamType enumerates the supported distribution families.
type StreamType int

const (
	Poisson StreamType = iota
	Uniform
	Gamma
	Pareto
)

var streamTypeNames = map[StreamType]string{
	Poisson: "Poisson",
	Uniform: "Uniform",
	Gamma:   "Gamma",
	Pareto:  "Pareto",
}

// AllStreamTypes lists the families in id order.
var AllStreamTypes = []StreamType{Poisson, Uniform, Gamma, Pareto}

// ParseStreamType maps a case-insensitive family token to a StreamType.
func ParseStreamType(name string) (StreamType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "poisson":
		return Poisson, nil
	case "uniform":
		return Uniform, nil
	case "gamma":
		return Gamma, nil
	case "pareto":
		return Pareto, nil
	default:
		return 0, fmt.Errorf("unknown stream type %q; valid: poisson, uniform, gamma, pareto", name)
	}
}

// ID returns the numeric family id written to reports.
func (t StreamType) ID() int { return int(t) }

func (t StreamType) String() string {
	if name, ok := streamTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("StreamType(%d)", int(t))
}

// MarshalText renders the family as its lower-case token.
func (t StreamType) MarshalText() ([]byte, error) {
	if _, ok := streamTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown stream type %d", int(t))
	}
	return []byte(strings.ToLower(t.String())), nil
}

// UnmarshalText accepts any token ParseStreamType accepts.
func (t *StreamType) UnmarshalText(text []byte) error {
	parsed, err := ParseStreamType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MeanVariance converts (intensity, E²/D²) into the target mean and variance.
func MeanVariance(intensity, e2d2 float64) (mean, variance float64) {
	mean = 1 / intensity
	variance = mean * mean / e2d2
	return mean, variance
}

// Stream is a fitted distribution of one family. Exactly one of the
// distribution fields is meaningful, selected by Type. A Stream holds no
// random source and is never mutated after FitStream, so it is safe to share
// between goroutines by value.
type Stream struct {
	Type     StreamType
	Mean     float64 // target mean
	Variance float64 // target variance

	exponential distuv.Exponential
	uniform     distuv.Uniform
	gamma       distuv.Gamma
	pareto      distuv.Pareto
}

// FitStream fits a distribution of family t with mean 1/intensity and
// variance mean²/e2d2. It returns an error wrapping ErrInfeasible when the
// family cannot represent the requested moments.
func FitStream(t StreamType, intensity, e2d2 float64) (Stream, error) {
	if !(intensity > 0) || math.IsInf(intensity, 0) {
		return Stream{}, fmt.Errorf("%w: %s intensity must be positive and finite, got %v", ErrInfeasible, t, intensity)
	}
	if !(e2d2 > 0) || math.IsInf(e2d2, 0) {
		return Stream{}, fmt.Errorf("%w: %s E²/D² must be positive and finite, got %v", ErrInfeasible, t, e2d2)
	}
	mean, variance := MeanVariance(intensity, e2d2)
	s := Stream{Type: t, Mean: mean, Variance: variance}

	switch t {
	case Poisson:
		if math.Abs(variance-mean*mean) > poissonShapeTolerance*mean*mean {
			return Stream{}, fmt.Errorf("%w: Poisson stream requires E²/D² = 1, got %v", ErrInfeasible, e2d2)
		}
		s.exponential = distuv.Exponential{Rate: intensity}

	case Uniform:
		lo, hi := uniformBounds(mean, variance)
		if lo < 0 {
			return Stream{}, fmt.Errorf("%w: Uniform lower bound %v < 0 for mean %v and E²/D² %v", ErrInfeasible, lo, mean, e2d2)
		}
		s.uniform = distuv.Uniform{Min: lo, Max: hi}

	case Gamma:
		shape, rate := gammaShapeRate(mean, variance)
		if !(shape > 0) || !(rate > 0) || math.IsInf(shape, 0) || math.IsInf(rate, 0) {
			return Stream{}, fmt.Errorf("%w: Gamma shape %v / rate %v invalid for mean %v and variance %v", ErrInfeasible, shape, rate, mean, variance)
		}
		s.gamma = distuv.Gamma{Alpha: shape, Beta: rate}

	case Pareto:
		alpha, xm := paretoShapeScale(mean, variance)
		if !(alpha > 2) || !(xm > 0) {
			return Stream{}, fmt.Errorf("%w: Pareto α = %v, x_m = %v (need α > 2, x_m > 0)", ErrInfeasible, alpha, xm)
		}
		fitted := distuv.Pareto{Xm: xm, Alpha: alpha}
		if !withinRelative(fitted.Mean(), mean, ParetoFitTolerance) || !withinRelative(fitted.Variance(), variance, ParetoFitTolerance) {
			return Stream{}, fmt.Errorf("%w: Pareto round trip gave mean %v variance %v, want %v and %v",
				ErrInfeasible, fitted.Mean(), fitted.Variance(), mean, variance)
		}
		s.pareto = fitted

	default:
		return Stream{}, fmt.Errorf("unknown stream type %d", int(t))
	}
	return s, nil
}

// Sample draws one interval using src. src must not be shared between
// goroutines; the Stream itself may be.
func (s Stream) Sample(src rand.Source) float64 {
	switch s.Type {
	case Poisson:
		d := s.exponential
		d.Src = src
		return d.Rand()
	case Uniform:
		d := s.uniform
		d.Src = src
		return d.Rand()
	case Gamma:
		d := s.gamma
		d.Src = src
		return d.Rand()
	case Pareto:
		d := s.pareto
		d.Src = src
		return d.Rand()
	}
	panic(fmt.Sprintf("traffic: sampling unfitted stream type %d", int(s.Type)))
}

// Params returns the family-specific fitted parameters, keyed by their
// conventional names.
func (s Stream) Params() map[string]float64 {
	switch s.Type {
	case Poisson:
		return map[string]float64{"rate": s.exponential.Rate}
	case Uniform:
		return map[string]float64{"min": s.uniform.Min, "max": s.uniform.Max}
	case Gamma:
		return map[string]float64{"shape": s.gamma.Alpha, "rate": s.gamma.Beta}
	case Pareto:
		return map[string]float64{"alpha": s.pareto.Alpha, "xm": s.pareto.Xm}
	}
	return nil
}

// uniformBounds returns [mean − Δ/2, mean + Δ/2] with Δ = sqrt(12·variance).
func uniformBounds(mean, variance float64) (lo, hi float64) {
	delta := math.Sqrt(12 * variance)
	return mean - 0.5*delta, mean + 0.5*delta
}

// gammaShapeRate matches Gamma(k, β) to the moments: k/β = mean, k/β² = variance.
func gammaShapeRate(mean, variance float64) (shape, rate float64) {
	return mean * mean / variance, mean / variance
}

// paretoShapeScale solves α(α−2) = mean²/variance for α, then x_m from the mean.
func paretoShapeScale(mean, variance float64) (alpha, xm float64) {
	alpha = 1 + math.Sqrt(1+mean*mean/variance)
	xm = mean * (alpha - 1) / alpha
	return alpha, xm
}

func withinRelative(got, want, tol float64) bool {
	if want == 0 {
		return got == 0
	}
	return math.Abs(got-want) <= tol*math.Abs(want)
}
