package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/variant-sim/variant-sim/sweep"
)

func writeObjectivesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "objectives.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVEvaluator_ServesReplicatesPerConfiguration(t *testing.T) {
	// GIVEN recorded values for two configurations
	path := writeObjectivesFile(t, `config_key,objective,replicate,value
config=1,final_cells,0,100.5
config=1,final_cells,1,101.5
config=2,final_cells,0,90
`)
	ev, err := loadCSVEvaluator(path)
	require.NoError(t, err)

	replicates, err := ev.Evaluate(context.Background(), sweep.VariationID{sweep.LocationConfig: 1}, "final_cells", 2)
	require.NoError(t, err)
	require.Len(t, replicates, 2)
	assert.Equal(t, sweep.Replicate{Value: 100.5, Valid: true}, replicates[0])
	assert.Equal(t, sweep.Replicate{Value: 101.5, Valid: true}, replicates[1])
}

func TestCSVEvaluator_CapsAtRequestedReplicates(t *testing.T) {
	path := writeObjectivesFile(t, `config_key,objective,replicate,value
config=1,final_cells,0,1
config=1,final_cells,1,2
config=1,final_cells,2,3
`)
	ev, err := loadCSVEvaluator(path)
	require.NoError(t, err)

	replicates, err := ev.Evaluate(context.Background(), sweep.VariationID{sweep.LocationConfig: 1}, "final_cells", 2)
	require.NoError(t, err)
	assert.Len(t, replicates, 2)
}

func TestCSVEvaluator_NonNumericValueIsFailedReplicate(t *testing.T) {
	// GIVEN a crashed simulation recorded with an empty value
	path := writeObjectivesFile(t, `config_key,objective,replicate,value
config=1,final_cells,0,100
config=1,final_cells,1,
`)
	ev, err := loadCSVEvaluator(path)
	require.NoError(t, err)

	replicates, err := ev.Evaluate(context.Background(), sweep.VariationID{sweep.LocationConfig: 1}, "final_cells", 2)
	require.NoError(t, err)
	require.Len(t, replicates, 2)
	assert.True(t, replicates[0].Valid)
	assert.False(t, replicates[1].Valid)
}

func TestCSVEvaluator_MissingConfiguration_Fails(t *testing.T) {
	path := writeObjectivesFile(t, `config_key,objective,replicate,value
config=1,final_cells,0,100
`)
	ev, err := loadCSVEvaluator(path)
	require.NoError(t, err)

	_, err = ev.Evaluate(context.Background(), sweep.VariationID{sweep.LocationConfig: 9}, "final_cells", 1)
	assert.ErrorIs(t, err, sweep.ErrLookup)

	_, err = ev.Evaluate(context.Background(), sweep.VariationID{sweep.LocationConfig: 1}, "peak_density", 1)
	assert.ErrorIs(t, err, sweep.ErrLookup)
}

func TestLoadCSVEvaluator_BadHeader_Fails(t *testing.T) {
	path := writeObjectivesFile(t, `key,value
a,1
`)
	_, err := loadCSVEvaluator(path)
	assert.ErrorContains(t, err, "header")
}

func TestLoadCSVEvaluator_MissingFile_Fails(t *testing.T) {
	_, err := loadCSVEvaluator(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
