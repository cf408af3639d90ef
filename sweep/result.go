package sweep

import (
	"context"
	"sync"
)

// StatBundle is a method-specific statistics record: MOATStats, SobolStats,
// or RBDStats.
type StatBundle interface {
	method() string
}

// GSAResult ties a realized sensitivity design to its per-objective
// statistics. Statistics are computed lazily on first access and cached by
// objective identity; the result is never otherwise mutated.
type GSAResult struct {
	// RunID uniquely identifies this run, including in the audit artifact.
	RunID string
	// Method names the GSA method that produced the design.
	Method string
	// Audit maps every design coordinate row to its realized configuration.
	Audit []AuditRow

	design gsaDesign
	cache  *objectiveCache

	mu    sync.Mutex
	stats map[string]StatBundle
}

// Stats returns the statistic bundle for one objective function, evaluating
// the design against it on first access. Safe for concurrent use; each
// objective is computed at most once.
func (r *GSAResult) Stats(ctx context.Context, objective string) (StatBundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bundle, ok := r.stats[objective]; ok {
		return bundle, nil
	}
	bundle, err := r.design.compute(ctx, r.cache, objective)
	if err != nil {
		return nil, err
	}
	r.stats[objective] = bundle
	return bundle, nil
}

// Objectives lists the objectives whose statistics are already cached.
func (r *GSAResult) Objectives() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.stats))
	for name := range r.stats {
		names = append(names, name)
	}
	return names
}
