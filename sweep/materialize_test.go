package sweep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestMaterializer_Row_RealizesInverseValues(t *testing.T) {
	// GIVEN a continuous variation on [0, 10]
	s := newFakeStore()
	ref := VariationID{LocationConfig: s.seed(LocationConfig, map[string]any{"rate": 0.0, "static": 42.0})}
	pv := mustParse(t, mustDistributed(t, LocationConfig, TargetPath{"rate"}, distuv.Uniform{Min: 0, Max: 10}, false))
	mat := &Materializer{Store: s, Reference: ref}

	// WHEN one design row is materialized at cdf 0.3
	cfg, err := mat.Row(context.Background(), pv, []float64{0.3})
	require.NoError(t, err)

	// THEN the varied column carries the inverse-CDF value and static columns
	// are cloned from the reference
	assert.InDelta(t, 3.0, columnValue(t, s, cfg, LocationConfig, "rate"), 1e-9)
	assert.Equal(t, 42.0, columnValue(t, s, cfg, LocationConfig, "static"))
}

func TestMaterializer_Row_DedupAcrossCalls(t *testing.T) {
	// GIVEN the same design coordinate submitted twice
	s := newFakeStore()
	ref := VariationID{LocationConfig: s.seed(LocationConfig, map[string]any{"a": 0.0})}
	pv := mustParse(t, mustDiscrete(t, LocationConfig, TargetPath{"a"}, 1.0, 2.0))
	mat := &Materializer{Store: s, Reference: ref}

	first, err := mat.Row(context.Background(), pv, []float64{0.25})
	require.NoError(t, err)
	second, err := mat.Row(context.Background(), pv, []float64{0.25})
	require.NoError(t, err)

	// THEN both rows resolve to the same configuration id
	assert.Equal(t, first, second)
	assert.Len(t, s.table(LocationConfig).byID, 2, "reference plus one varied row")
}

func TestMaterializer_Row_UntouchedLocationKeepsReferenceID(t *testing.T) {
	// GIVEN variations touching only the config location
	s := newFakeStore()
	ref := VariationID{
		LocationConfig:   s.seed(LocationConfig, map[string]any{"a": 0.0}),
		LocationRulesets: s.seed(LocationRulesets, map[string]any{"r": 0.0}),
	}
	pv := mustParse(t, mustDiscrete(t, LocationConfig, TargetPath{"a"}, 1.0, 2.0))
	mat := &Materializer{Store: s, Reference: ref}

	cfg, err := mat.Row(context.Background(), pv, []float64{0.0})
	require.NoError(t, err)

	// THEN the untouched location still points at the reference row
	assert.Equal(t, ref[LocationRulesets], cfg[LocationRulesets])
	assert.NotEqual(t, ref[LocationConfig], cfg[LocationConfig])
}

func TestMaterializer_Row_CoVariationFanOut(t *testing.T) {
	// GIVEN a covariation whose second member mirrors the first
	s := newFakeStore()
	ref := VariationID{LocationConfig: s.seed(LocationConfig, map[string]any{"up": 0.0, "down": 0.0})}
	up := mustDistributed(t, LocationConfig, TargetPath{"up"}, distuv.Uniform{Min: 0, Max: 1}, false)
	down := mustDistributed(t, LocationConfig, TargetPath{"down"}, distuv.Uniform{Min: 0, Max: 1}, true)
	cv, err := NewCoVariation(up, down)
	require.NoError(t, err)
	pv := mustParse(t, cv)
	mat := &Materializer{Store: s, Reference: ref}

	// WHEN the single scalar coordinate 0.2 is materialized
	cfg, err := mat.Row(context.Background(), pv, []float64{0.2})
	require.NoError(t, err)

	// THEN both members moved from one draw, the flipped one mirrored
	assert.InDelta(t, 0.2, columnValue(t, s, cfg, LocationConfig, "up"), 1e-12)
	assert.InDelta(t, 0.8, columnValue(t, s, cfg, LocationConfig, "down"), 1e-12)
}

func TestMaterializer_Row_WrongArity_Fails(t *testing.T) {
	s := newFakeStore()
	ref := VariationID{LocationConfig: s.seed(LocationConfig, map[string]any{"a": 0.0})}
	pv := mustParse(t, mustDiscrete(t, LocationConfig, TargetPath{"a"}, 1.0, 2.0))
	mat := &Materializer{Store: s, Reference: ref}

	_, err := mat.Row(context.Background(), pv, []float64{0.1, 0.2})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMaterializer_Row_MissingReference_Fails(t *testing.T) {
	// GIVEN a reference id that was never seeded
	s := newFakeStore()
	pv := mustParse(t, mustDiscrete(t, LocationConfig, TargetPath{"a"}, 1.0, 2.0))
	mat := &Materializer{Store: s, Reference: VariationID{LocationConfig: 99}}

	_, err := mat.Row(context.Background(), pv, []float64{0.0})
	assert.ErrorIs(t, err, ErrLookup)
}

func TestAddVariations_NilStore_Fails(t *testing.T) {
	pv := mustParse(t, mustDiscrete(t, LocationConfig, TargetPath{"a"}, 1.0, 2.0))
	_, err := AddVariations(context.Background(), nil, GridSampling{}, pv, VariationID{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddVariations_SharedRowsAcrossMethods(t *testing.T) {
	// GIVEN a grid design already persisted
	s := newFakeStore()
	ref := VariationID{LocationConfig: s.seed(LocationConfig, map[string]any{"a": 0.0})}
	pv := mustParse(t, mustDiscrete(t, LocationConfig, TargetPath{"a"}, 1.0, 2.0))

	grid, err := AddVariations(context.Background(), s, GridSampling{}, pv, ref)
	require.NoError(t, err)

	// WHEN an LHS design lands on the same discrete values
	rng := NewPartitionedRNG(NewStudyKey(1)).ForSubsystem(SubsystemSampling)
	lhs, err := AddVariations(context.Background(), s, LHSSampling{N: 2, RNG: rng}, pv, ref)
	require.NoError(t, err)

	// THEN both designs share the same configuration rows
	gridIDs := make(map[int64]bool)
	for _, cfg := range grid.IDs[0] {
		gridIDs[cfg[LocationConfig]] = true
	}
	for i, cfg := range lhs.IDs[0] {
		assert.True(t, gridIDs[cfg[LocationConfig]], "lhs row %d minted a fresh id", i)
	}
	assert.Len(t, s.table(LocationConfig).byID, 3, "reference plus the two grid rows only")
}
