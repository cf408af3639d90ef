package sweep

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GSAMethod builds a realized sensitivity design and knows how to turn
// objective evaluations over it into a statistic bundle.
type GSAMethod interface {
	// Name identifies the method in results and logs.
	Name() string

	design(ctx context.Context, mat *Materializer, pv *ParsedVariations) (gsaDesign, error)
}

// gsaDesign is a realized design plus the method-specific statistics
// computation over memoized objective values.
type gsaDesign interface {
	compute(ctx context.Context, cache *objectiveCache, objective string) (StatBundle, error)
	auditRows() []AuditRow
}

// GSAConfig wires the collaborators a sensitivity run needs.
type GSAConfig struct {
	// Store resolves configuration tuples to ids.
	Store Store
	// Evaluator supplies per-replicate objective values.
	Evaluator Evaluator
	// Reference carries the per-location ids variations start from.
	Reference VariationID
	// NReplicates is the replicate count requested per configuration.
	NReplicates int
	// FailurePolicy decides how partially-failed replicate sets aggregate.
	FailurePolicy FailurePolicy
}

// RunGSA constructs and materializes the method's design (all validation
// fires here, before any evaluation is dispatched), records the design audit
// when the store supports it, and returns a GSAResult whose per-objective
// statistics are computed lazily on first access.
func RunGSA(ctx context.Context, cfg GSAConfig, method GSAMethod, pv *ParsedVariations) (*GSAResult, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrValidation)
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("%w: nil evaluator", ErrValidation)
	}
	if cfg.NReplicates < 1 {
		return nil, fmt.Errorf("%w: need at least 1 replicate, got %d", ErrValidation, cfg.NReplicates)
	}

	runID := uuid.NewString()
	mat := &Materializer{Store: cfg.Store, Reference: cfg.Reference}
	design, err := method.design(ctx, mat, pv)
	if err != nil {
		return nil, fmt.Errorf("%s design: %w", method.Name(), err)
	}

	audit := design.auditRows()
	if sink, ok := cfg.Store.(AuditSink); ok {
		if err := sink.RecordAudit(ctx, runID, audit); err != nil {
			return nil, fmt.Errorf("recording design audit: %w", err)
		}
	}
	logrus.Infof("GSA run %s: method=%s dims=%d design rows=%d", runID, method.Name(), pv.NumDims(), len(audit))

	return &GSAResult{
		RunID:  runID,
		Method: method.Name(),
		Audit:  audit,
		design: design,
		cache:  newObjectiveCache(cfg.Evaluator, cfg.FailurePolicy, cfg.NReplicates),
		stats:  make(map[string]StatBundle),
	}, nil
}
