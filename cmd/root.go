package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/variant-sim/variant-sim/sweep"
	"github.com/variant-sim/variant-sim/sweep/store"
)

var (
	// CLI flags for the study runner
	studyPath      string // Path to the YAML study bundle
	objectivesPath string // Path to the CSV of pre-computed objective values
	dbPath         string // SQLite store path; empty = in-memory store
	auditPath      string // Optional CSV output of the design audit
	logLevel       string // Log verbosity level
	seedOverride   int64  // Overrides the study seed when >= 0
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "variant-sim",
	Short: "Parameter variation generation and global sensitivity analysis",
}

// runCmd loads a study bundle, materializes its design, and prints the
// per-feature sensitivity statistics for every objective.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a sensitivity study from a YAML bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		bundle, err := LoadStudyBundle(studyPath)
		if err != nil {
			return err
		}
		if err := bundle.Validate(); err != nil {
			return fmt.Errorf("study config: %w", err)
		}
		if seedOverride >= 0 {
			bundle.Seed = seedOverride
		}
		return runStudy(cmd.Context(), bundle)
	},
}

// seeder is the reference-row bootstrap capability both stores share.
type seeder interface {
	sweep.Store
	Seed(ctx context.Context, loc sweep.Location, columns map[string]any) (int64, error)
}

func runStudy(ctx context.Context, bundle *StudyBundle) error {
	var st seeder
	if dbPath != "" {
		sq, err := store.NewSQLite(dbPath)
		if err != nil {
			return err
		}
		defer func() { _ = sq.Close() }()
		st = sq
	} else {
		st = store.NewMemory()
	}

	reference := sweep.VariationID{}
	for locName, columns := range bundle.Reference {
		loc := sweep.Location(locName)
		if !loc.Valid() {
			return fmt.Errorf("study config: unknown reference location %q", locName)
		}
		id, err := st.Seed(ctx, loc, columns)
		if err != nil {
			return fmt.Errorf("seeding %s reference row: %w", loc, err)
		}
		reference[loc] = id
	}

	variations, err := bundle.BuildVariations()
	if err != nil {
		return fmt.Errorf("study config: %w", err)
	}
	parsed, err := sweep.ParseVariations(variations)
	if err != nil {
		return err
	}

	rng := sweep.NewPartitionedRNG(sweep.NewStudyKey(bundle.Seed))
	method, err := bundle.BuildMethod(rng)
	if err != nil {
		return err
	}
	evaluator, err := loadCSVEvaluator(objectivesPath)
	if err != nil {
		return err
	}

	replicates := bundle.Replicates
	if replicates < 1 {
		replicates = 1
	}
	result, err := sweep.RunGSA(ctx, sweep.GSAConfig{
		Store:         st,
		Evaluator:     evaluator,
		Reference:     reference,
		NReplicates:   replicates,
		FailurePolicy: bundle.FailurePolicyValue(),
	}, method, parsed)
	if err != nil {
		return err
	}

	for _, objective := range bundle.Objectives {
		stats, err := result.Stats(ctx, objective)
		if err != nil {
			return err
		}
		printStats(objective, stats)
	}

	if auditPath != "" {
		if err := writeAuditCSV(auditPath, result); err != nil {
			return err
		}
		logrus.Infof("wrote design audit for run %s to %s", result.RunID, auditPath)
	}
	return nil
}

func printStats(objective string, bundle sweep.StatBundle) {
	fmt.Printf("=== Objective: %s ===\n", objective)
	switch stats := bundle.(type) {
	case sweep.MOATStats:
		for i, f := range stats.Features {
			fmt.Printf("feature %d: mu=%.6g mu*=%.6g sigma2=%.6g\n", i, f.Mean, f.MeanAbs, f.Variance)
		}
	case sweep.SobolStats:
		for i, f := range stats.Features {
			if f.Ignored {
				fmt.Printf("feature %d: ignored\n", i)
				continue
			}
			fmt.Printf("feature %d: S=%.6g ST=%.6g\n", i, f.FirstOrder, f.TotalOrder)
		}
	case sweep.RBDStats:
		for i, s := range stats.Indices {
			fmt.Printf("feature %d: S=%.6g\n", i, s)
		}
	}
}

// writeAuditCSV dumps the design-to-configuration mapping for offline
// inspection.
func writeAuditCSV(path string, result *sweep.GSAResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating audit file: %w", err)
	}
	defer func() { _ = f.Close() }()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"run_id", "matrix", "row", "cdfs", "config_key"}); err != nil {
		return fmt.Errorf("writing audit header: %w", err)
	}
	for _, row := range result.Audit {
		cdfs := make([]string, len(row.CDFs))
		for i, c := range row.CDFs {
			cdfs[i] = strconv.FormatFloat(c, 'g', -1, 64)
		}
		record := []string{
			result.RunID,
			strconv.Itoa(row.Matrix),
			strconv.Itoa(row.Row),
			strings.Join(cdfs, " "),
			row.IDs.Key(),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing audit row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func init() {
	runCmd.Flags().StringVar(&studyPath, "study", "study.yaml", "Path to the YAML study bundle")
	runCmd.Flags().StringVar(&objectivesPath, "objective-values", "objectives.csv", "CSV of pre-computed objective values (config_key,objective,replicate,value)")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite store path (empty = in-memory)")
	runCmd.Flags().StringVar(&auditPath, "audit", "", "Write the design audit to this CSV file")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log verbosity: panic, fatal, error, warn, info, debug, trace")
	runCmd.Flags().Int64Var(&seedOverride, "seed", -1, "Override the study seed (-1 = use the bundle's seed)")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
