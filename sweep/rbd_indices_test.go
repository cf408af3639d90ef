package sweep

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func runRBD(t *testing.T, method RBD, fn func(x, y float64) float64) RBDStats {
	t.Helper()
	s := newFakeStore()
	ref := VariationID{LocationConfig: s.seed(LocationConfig, map[string]any{"x": 0.0, "y": 0.0})}
	pv := mustParse(t,
		mustDistributed(t, LocationConfig, TargetPath{"x"}, distuv.Uniform{Min: 0, Max: 1}, false),
		mustDistributed(t, LocationConfig, TargetPath{"y"}, distuv.Uniform{Min: 0, Max: 1}, false),
	)
	ev := objectiveOf(func(cfg VariationID) float64 {
		return fn(columnValue(t, s, cfg, LocationConfig, "x"), columnValue(t, s, cfg, LocationConfig, "y"))
	})
	result, err := RunGSA(context.Background(), GSAConfig{
		Store:       s,
		Evaluator:   ev,
		Reference:   ref,
		NReplicates: 1,
	}, method, pv)
	require.NoError(t, err)
	bundle, err := result.Stats(context.Background(), "response")
	require.NoError(t, err)
	stats, ok := bundle.(RBDStats)
	require.True(t, ok)
	require.Len(t, stats.Indices, 2)
	return stats
}

func TestRBD_FullPeriod_SeparatesInfluentialFromDummy(t *testing.T) {
	// GIVEN f(x, y) = x on a full-period design
	rng := NewPartitionedRNG(NewStudyKey(17)).ForSubsystem(SubsystemSampling)
	stats := runRBD(t, RBD{N: 256, RNG: rng}, func(x, y float64) float64 { return x })

	// THEN x's ordering concentrates the response in its first harmonic while
	// y's ordering scatters it across the spectrum
	assert.Greater(t, stats.Indices[0], 0.9, "influential feature")
	assert.Less(t, stats.Indices[1], 0.3, "dummy feature")
}

func TestRBD_HalfPeriod_SeparatesInfluentialFromDummy(t *testing.T) {
	// GIVEN the Sobol-derived half-period variant
	stats := runRBD(t, RBD{N: 256, UseSobol: true}, func(x, y float64) float64 { return x * x })

	assert.Greater(t, stats.Indices[0], 0.9, "influential feature")
	assert.Less(t, stats.Indices[1], 0.3, "dummy feature")
}

func TestRBD_IgnoreIndices_Unsupported(t *testing.T) {
	s := newFakeStore()
	ref := VariationID{LocationConfig: s.seed(LocationConfig, map[string]any{"x": 0.0})}
	pv := mustParse(t, mustDistributed(t, LocationConfig, TargetPath{"x"}, distuv.Uniform{Min: 0, Max: 1}, false))
	rng := NewPartitionedRNG(NewStudyKey(1)).ForSubsystem(SubsystemSampling)

	_, err := RunGSA(context.Background(), GSAConfig{
		Store:       s,
		Evaluator:   objectiveOf(func(cfg VariationID) float64 { return 0 }),
		Reference:   ref,
		NReplicates: 1,
	}, RBD{N: 16, RNG: rng, IgnoreIndices: []int{0}}, pv)
	assert.ErrorIs(t, err, ErrUnsupportedOption)
}

func TestRBD_ConstantResponse_Fails(t *testing.T) {
	// GIVEN a flat response with no spectral energy
	rng := NewPartitionedRNG(NewStudyKey(1)).ForSubsystem(SubsystemSampling)
	s := newFakeStore()
	ref := VariationID{LocationConfig: s.seed(LocationConfig, map[string]any{"x": 0.0})}
	pv := mustParse(t, mustDistributed(t, LocationConfig, TargetPath{"x"}, distuv.Uniform{Min: 0, Max: 1}, false))

	result, err := RunGSA(context.Background(), GSAConfig{
		Store:       s,
		Evaluator:   objectiveOf(func(cfg VariationID) float64 { return 1 }),
		Reference:   ref,
		NReplicates: 1,
	}, RBD{N: 16, RNG: rng}, pv)
	require.NoError(t, err)

	_, err = result.Stats(context.Background(), "flat")
	assert.ErrorIs(t, err, ErrComputation)
}

func TestMirrorExtend(t *testing.T) {
	got := mirrorExtend([]float64{1, 2, 3, 4})
	want := []float64{1, 2, 3, 4, 3, 2}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i], "index %d", i)
	}
}

func TestHarmonicEnergyRatio_PureFirstHarmonic(t *testing.T) {
	// GIVEN one full sine period sampled at 64 points
	n := 64
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * float64(i) / float64(n))
	}

	ratio, err := harmonicEnergyRatio(signal, 6)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ratio, 1e-9)
}
