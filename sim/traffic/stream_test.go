package traffic

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

const sampleCount = 1_000_000

func drawSamples(s Stream, seed uint64, n int) []float64 {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Sample(src)
	}
	return out
}

func TestFitStream_SampleMomentsMatchTargets(t *testing.T) {
	tests := []struct {
		name      string
		typ       StreamType
		intensity float64
		e2d2      float64
	}{
		{"poisson intensity 1", Poisson, 1, 1},
		{"poisson intensity 10", Poisson, 10, 1},
		{"gamma exponential shape", Gamma, 1, 1},
		{"gamma smooth", Gamma, 1, 3},
		{"gamma bursty", Gamma, 2, 0.5},
		{"uniform e2d2 3", Uniform, 1, 3},
		{"uniform e2d2 5", Uniform, 4, 5},
		{"pareto e2d2 20", Pareto, 1, 20},
		{"pareto e2d2 50", Pareto, 0.5, 50},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a feasible fit
			s, err := FitStream(tt.typ, tt.intensity, tt.e2d2)
			require.NoError(t, err)

			// WHEN a million intervals are drawn
			mean, std := stat.MeanStdDev(drawSamples(s, uint64(42+i), sampleCount), nil)

			// THEN the mean is within 1% and the standard deviation within 10%
			wantMean := 1 / tt.intensity
			wantStd := math.Sqrt(wantMean * wantMean / tt.e2d2)
			assert.InEpsilon(t, wantMean, mean, 0.01, "mean")
			assert.InEpsilon(t, wantStd, std, 0.10, "std dev")
		})
	}
}

func TestFitStream_SamplesAreNonNegative(t *testing.T) {
	for _, typ := range AllStreamTypes {
		e2d2 := 4.0
		if typ == Poisson {
			e2d2 = 1
		}
		s, err := FitStream(typ, 1, e2d2)
		require.NoError(t, err, typ.String())
		for i, v := range drawSamples(s, 7, 10_000) {
			if v < 0 {
				t.Fatalf("%s sample %d = %v, want >= 0", typ, i, v)
			}
		}
	}
}

func TestFitStream_PoissonRejectsShapeOtherThanOne(t *testing.T) {
	for _, e2d2 := range []float64{0.5, 0.999, 1.001, 3} {
		_, err := FitStream(Poisson, 1, e2d2)
		assert.ErrorIs(t, err, ErrInfeasible, "E²/D² = %v", e2d2)
	}
}

func TestFitStream_UniformRejectsNegativeLowerBound(t *testing.T) {
	// E²/D² < 3 puts mean − sqrt(3)·σ below zero.
	for _, e2d2 := range []float64{0.5, 1, 2.9} {
		_, err := FitStream(Uniform, 1, e2d2)
		assert.ErrorIs(t, err, ErrInfeasible, "E²/D² = %v", e2d2)
	}
	s, err := FitStream(Uniform, 1, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0, s.Params()["min"], 1e-12)
	assert.InDelta(t, 2, s.Params()["max"], 1e-12)
}

func TestFitStream_ParetoRejectsInfiniteVariance(t *testing.T) {
	// α = 1 + sqrt(1 + E²/D²) exceeds 2 only for positive E²/D².
	for _, e2d2 := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := FitStream(Pareto, 1, e2d2)
		assert.ErrorIs(t, err, ErrInfeasible, "E²/D² = %v", e2d2)
	}
}

func TestFitStream_ParetoParametersRoundTrip(t *testing.T) {
	s, err := FitStream(Pareto, 1, 3)
	require.NoError(t, err)
	p := s.Params()
	// α(α−2) = 3 → α = 3, x_m = mean·(α−1)/α = 2/3
	assert.InDelta(t, 3.0, p["alpha"], 1e-12)
	assert.InDelta(t, 2.0/3.0, p["xm"], 1e-12)
}

func TestFitStream_GammaParameters(t *testing.T) {
	s, err := FitStream(Gamma, 2, 4)
	require.NoError(t, err)
	p := s.Params()
	// mean 0.5, variance 0.0625 → shape 4, rate 8
	assert.InDelta(t, 4.0, p["shape"], 1e-12)
	assert.InDelta(t, 8.0, p["rate"], 1e-12)
}

func TestFitStream_InvalidIntensity_Infeasible(t *testing.T) {
	for _, intensity := range []float64{0, -2, math.Inf(1), math.NaN()} {
		_, err := FitStream(Gamma, intensity, 1)
		assert.True(t, errors.Is(err, ErrInfeasible), "intensity %v", intensity)
	}
}

func TestParseStreamType_CaseInsensitive(t *testing.T) {
	tests := map[string]StreamType{
		"poisson": Poisson,
		"Uniform": Uniform,
		"GAMMA":   Gamma,
		" pareto": Pareto,
	}
	for in, want := range tests {
		got, err := ParseStreamType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStreamType("weibull")
	assert.Error(t, err)
}

func TestStreamType_IDsAndNames(t *testing.T) {
	assert.Equal(t, 0, Poisson.ID())
	assert.Equal(t, 3, Pareto.ID())
	assert.Equal(t, "Gamma", Gamma.String())

	text, err := Uniform.MarshalText()
	require.NoError(t, err)
	var back StreamType
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, Uniform, back)
}
