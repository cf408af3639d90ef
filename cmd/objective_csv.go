package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/variant-sim/variant-sim/sweep"
)

// csvEvaluator serves pre-computed objective values from a CSV file with
// columns config_key,objective,replicate,value. A non-numeric or empty value
// field marks a failed replicate. This is the offline stand-in for the
// execution collaborator: simulations ran elsewhere, the analysis happens
// here.
type csvEvaluator struct {
	values map[string][]sweep.Replicate // key: objective + "|" + config key
}

func loadCSVEvaluator(path string) (*csvEvaluator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening objective values: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading objective values header: %w", err)
	}
	if len(header) < 4 || header[0] != "config_key" {
		return nil, fmt.Errorf("objective values file needs header config_key,objective,replicate,value")
	}

	ev := &csvEvaluator{values: make(map[string][]sweep.Replicate)}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading objective values line %d: %w", line, err)
		}
		key := record[1] + "|" + record[0]
		value, parseErr := strconv.ParseFloat(record[3], 64)
		if parseErr != nil {
			ev.values[key] = append(ev.values[key], sweep.Replicate{})
			continue
		}
		ev.values[key] = append(ev.values[key], sweep.Replicate{Value: value, Valid: true})
	}
	logrus.Debugf("loaded %d objective series from %s", len(ev.values), path)
	return ev, nil
}

// Evaluate implements sweep.Evaluator.
func (e *csvEvaluator) Evaluate(ctx context.Context, cfg sweep.VariationID, objective string, nReplicates int) ([]sweep.Replicate, error) {
	replicates, ok := e.values[objective+"|"+cfg.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: no recorded values for %s under objective %s",
			sweep.ErrLookup, cfg.Key(), objective)
	}
	if len(replicates) > nReplicates {
		replicates = replicates[:nReplicates]
	}
	return replicates, nil
}

var _ sweep.Evaluator = (*csvEvaluator)(nil)
