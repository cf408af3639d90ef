package cmd

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withFlags pins the package-level CLI flags for one test and restores them
// afterwards.
func withFlags(t *testing.T, objectives, db, audit string) {
	t.Helper()
	prevObjectives, prevDB, prevAudit := objectivesPath, dbPath, auditPath
	objectivesPath, dbPath, auditPath = objectives, db, audit
	t.Cleanup(func() {
		objectivesPath, dbPath, auditPath = prevObjectives, prevDB, prevAudit
	})
}

// moatStudyBundle is a minimal end-to-end study: one binary parameter, one
// MOAT base point. The realized rows are deterministic: the base point lands
// on the second value, the perturbation on the first, minting config ids 1
// and 2 after the seeded reference row 0.
func moatStudyBundle() *StudyBundle {
	return &StudyBundle{
		Seed:       7,
		Replicates: 1,
		Reference:  map[string]map[string]any{"config": {"x": 0.5}},
		Variations: []VariationSpec{{ElementSpec: ElementSpec{
			Location: "config",
			Target:   []string{"x"},
			Values:   []any{0.0, 1.0},
		}}},
		Method:     MethodSpec{GSA: "moat", N: 1},
		Objectives: []string{"final_cells"},
	}
}

func TestRunStudy_EndToEnd(t *testing.T) {
	// GIVEN recorded objective values for both realized configurations
	objectives := writeObjectivesFile(t, `config_key,objective,replicate,value
config=1,final_cells,0,10
config=2,final_cells,0,4
`)
	auditFile := filepath.Join(t.TempDir(), "audit.csv")
	withFlags(t, objectives, "", auditFile)

	// WHEN the study runs against the in-memory store
	require.NoError(t, runStudy(context.Background(), moatStudyBundle()))

	// THEN the design audit was written: header, one base row, one
	// perturbation row
	f, err := os.Open(auditFile)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"run_id", "matrix", "row", "cdfs", "config_key"}, records[0])
	assert.Equal(t, "config=1", records[1][4])
	assert.Equal(t, "config=2", records[2][4])
}

func TestRunStudy_SQLiteStore(t *testing.T) {
	objectives := writeObjectivesFile(t, `config_key,objective,replicate,value
config=1,final_cells,0,10
config=2,final_cells,0,4
`)
	withFlags(t, objectives, filepath.Join(t.TempDir(), "study.db"), "")

	require.NoError(t, runStudy(context.Background(), moatStudyBundle()))
}

func TestRunStudy_MissingObjectiveValues_Fails(t *testing.T) {
	// GIVEN a values file that misses one realized configuration
	objectives := writeObjectivesFile(t, `config_key,objective,replicate,value
config=1,final_cells,0,10
`)
	withFlags(t, objectives, "", "")

	err := runStudy(context.Background(), moatStudyBundle())
	assert.Error(t, err)
}

func TestRunStudy_UnknownReferenceLocation_Fails(t *testing.T) {
	objectives := writeObjectivesFile(t, `config_key,objective,replicate,value
config=1,final_cells,0,10
`)
	withFlags(t, objectives, "", "")

	bundle := moatStudyBundle()
	bundle.Reference = map[string]map[string]any{"plots": {"x": 0.5}}
	err := runStudy(context.Background(), bundle)
	assert.ErrorContains(t, err, "unknown reference location")
}
