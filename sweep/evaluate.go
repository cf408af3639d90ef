package sweep

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Replicate is one objective evaluation of one realized configuration.
// Valid=false marks a missing or failed replicate; the execution collaborator
// reports those explicitly instead of dropping them.
type Replicate struct {
	Value float64
	Valid bool
}

// Evaluator is the execution collaborator: it yields per-replicate objective
// values for a realized configuration. Scheduling, retries and timeouts are
// its business; this package only aggregates what comes back.
type Evaluator interface {
	Evaluate(ctx context.Context, cfg VariationID, objective string, nReplicates int) ([]Replicate, error)
}

// FailurePolicy decides how partially-failed replicate sets aggregate.
type FailurePolicy int

const (
	// FailFast errors on the first invalid replicate (default).
	FailFast FailurePolicy = iota
	// ExcludeFailed averages the valid replicates and logs the excluded
	// count. A configuration with zero valid replicates is still an error;
	// it never silently divides by zero.
	ExcludeFailed
)

// objectiveCache memoizes replicate-averaged objective values per unique
// configuration id so repeated design points never re-dispatch evaluations.
// Safe for concurrent use.
type objectiveCache struct {
	evaluator   Evaluator
	policy      FailurePolicy
	nReplicates int

	mu     sync.Mutex
	values map[string]float64
}

func newObjectiveCache(evaluator Evaluator, policy FailurePolicy, nReplicates int) *objectiveCache {
	return &objectiveCache{
		evaluator:   evaluator,
		policy:      policy,
		nReplicates: nReplicates,
		values:      make(map[string]float64),
	}
}

// Value returns the replicate-averaged objective value for cfg, evaluating on
// first access.
func (c *objectiveCache) Value(ctx context.Context, cfg VariationID, objective string) (float64, error) {
	key := objective + "|" + cfg.Key()
	c.mu.Lock()
	v, ok := c.values[key]
	c.mu.Unlock()
	if ok {
		return v, nil
	}

	replicates, err := c.evaluator.Evaluate(ctx, cfg, objective, c.nReplicates)
	if err != nil {
		return 0, fmt.Errorf("evaluating %s for %s: %w", objective, cfg.Key(), err)
	}
	v, err = aggregateReplicates(replicates, c.policy, cfg, objective)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.values[key] = v
	c.mu.Unlock()
	return v, nil
}

// aggregateReplicates applies the failure policy to one replicate set.
func aggregateReplicates(replicates []Replicate, policy FailurePolicy, cfg VariationID, objective string) (float64, error) {
	var sum float64
	valid := 0
	for _, r := range replicates {
		if !r.Valid {
			if policy == FailFast {
				return 0, fmt.Errorf("%w: objective %s has a failed replicate for %s",
					ErrComputation, objective, cfg.Key())
			}
			continue
		}
		sum += r.Value
		valid++
	}
	if valid == 0 {
		return 0, fmt.Errorf("%w: objective %s has no valid replicates for %s",
			ErrComputation, objective, cfg.Key())
	}
	if excluded := len(replicates) - valid; excluded > 0 {
		logrus.Warnf("objective %s: excluded %d failed replicate(s) for %s, averaging over %d",
			objective, excluded, cfg.Key(), valid)
	}
	return sum / float64(valid), nil
}
