package sweep

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store is the persistence collaborator: an atomic get-or-insert over
// configuration rows plus read access to reference row columns.
// Implementations live in sweep/store.
type Store interface {
	// GetOrInsert resolves the configuration row at location loc whose
	// static columns are cloned from row baseID and whose varied columns
	// are overridden by varied (keyed by TargetPath.ColumnName()). The
	// operation is atomic under concurrent callers: identical tuples always
	// resolve to the same id, however many times they are submitted.
	GetOrInsert(ctx context.Context, loc Location, baseID int64, varied map[string]any) (int64, error)

	// ReferenceValue reads one column of a persisted row. A missing row or
	// column is an ErrLookup.
	ReferenceValue(ctx context.Context, loc Location, id int64, column string) (any, error)
}

// AuditRow records how one design row was realized, for the persisted audit
// artifact mapping design coordinates to configuration ids.
type AuditRow struct {
	Matrix int
	Row    int
	CDFs   []float64
	IDs    VariationID
}

// AuditSink is an optional store capability: durable recording of the
// design-to-configuration mapping for a run.
type AuditSink interface {
	RecordAudit(ctx context.Context, runID string, rows []AuditRow) error
}

// Materializer maps design rows through each variation's inverse CDF and
// resolves the resulting tuples to persisted configuration ids.
type Materializer struct {
	Store     Store
	Reference VariationID
}

// Row materializes a single design row: per location, every elementary
// variation's Inverse is fed its owning dimension's CDF coordinate (one
// scalar per dimension, fanned out across covariation members), and the
// resulting tuple is resolved through the store's get-or-insert.
func (m *Materializer) Row(ctx context.Context, pv *ParsedVariations, cdfs []float64) (VariationID, error) {
	if len(cdfs) != pv.NumDims() {
		return nil, fmt.Errorf("%w: design row has %d coordinates, want %d",
			ErrValidation, len(cdfs), pv.NumDims())
	}
	id := m.Reference.Clone()
	for _, loc := range Locations {
		bucket := pv.ByLocation[loc]
		if bucket == nil {
			continue
		}
		varied := make(map[string]any, len(bucket.Variations))
		for i, el := range bucket.Variations {
			varied[el.Target().ColumnName()] = el.Inverse(cdfs[bucket.DimIndices[i]])
		}
		rowID, err := m.Store.GetOrInsert(ctx, loc, m.Reference[loc], varied)
		if err != nil {
			return nil, fmt.Errorf("materializing %s row: %w", loc, err)
		}
		id[loc] = rowID
	}
	return id, nil
}

// rows materializes a full CDF matrix in order.
func (m *Materializer) rows(ctx context.Context, pv *ParsedVariations, cdfs [][]float64) ([]VariationID, error) {
	ids := make([]VariationID, len(cdfs))
	for i, row := range cdfs {
		id, err := m.Row(ctx, pv, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// SamplingMethod turns a parsed variation set into a realized design.
// Implementations are pure given their RNG handle; all persistence goes
// through the Materializer.
type SamplingMethod interface {
	// Name identifies the method in results and logs.
	Name() string

	sample(ctx context.Context, mat *Materializer, pv *ParsedVariations) (*SampledDesign, error)
}

// AddVariations generates a design with the given method and materializes it
// against st, starting from the reference configuration ids. The returned
// design carries the realized ids plus the method's auxiliary data (raw CDFs,
// RBD sort order).
func AddVariations(ctx context.Context, st Store, method SamplingMethod, pv *ParsedVariations, reference VariationID) (*SampledDesign, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: nil store", ErrValidation)
	}
	mat := &Materializer{Store: st, Reference: reference}
	design, err := method.sample(ctx, mat, pv)
	if err != nil {
		return nil, fmt.Errorf("%s sampling: %w", method.Name(), err)
	}
	logrus.Debugf("added variations: method=%s matrices=%d rows=%d dims=%d",
		method.Name(), len(design.IDs), design.Rows(), pv.NumDims())
	return design, nil
}
