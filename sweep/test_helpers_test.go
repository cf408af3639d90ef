package sweep

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
)

// fakeStore is an in-package stand-in for sweep/store.Memory, mirroring its
// canonical-tuple dedup semantics. Kept here because internal sweep tests
// cannot import sweep/store without an import cycle.
type fakeStore struct {
	mu     sync.Mutex
	tables map[Location]*fakeTable
	calls  int // GetOrInsert invocations, for dedup assertions
	audits map[string][]AuditRow
}

type fakeTable struct {
	byTuple map[string]int64
	byID    map[int64]map[string]any
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables: make(map[Location]*fakeTable),
		audits: make(map[string][]AuditRow),
	}
}

func (s *fakeStore) table(loc Location) *fakeTable {
	t := s.tables[loc]
	if t == nil {
		t = &fakeTable{byTuple: make(map[string]int64), byID: make(map[int64]map[string]any)}
		s.tables[loc] = t
	}
	return t
}

func tupleKey(columns map[string]any) string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, columns[name])
	}
	return strings.Join(parts, ";")
}

// seed inserts a reference row and returns its id.
func (s *fakeStore) seed(loc Location, columns map[string]any) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(loc)
	id := t.nextID
	t.nextID++
	t.byTuple[tupleKey(columns)] = id
	t.byID[id] = columns
	return id
}

func (s *fakeStore) GetOrInsert(ctx context.Context, loc Location, baseID int64, varied map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	t := s.table(loc)
	base, ok := t.byID[baseID]
	if !ok {
		return 0, fmt.Errorf("%w: no reference row %d at %s", ErrLookup, baseID, loc)
	}
	columns := make(map[string]any, len(base)+len(varied))
	for name, v := range base {
		columns[name] = v
	}
	for name, v := range varied {
		columns[name] = v
	}
	key := tupleKey(columns)
	if id, ok := t.byTuple[key]; ok {
		return id, nil
	}
	id := t.nextID
	t.nextID++
	t.byTuple[key] = id
	t.byID[id] = columns
	return id, nil
}

func (s *fakeStore) ReferenceValue(ctx context.Context, loc Location, id int64, column string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.table(loc).byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: no row %d at %s", ErrLookup, id, loc)
	}
	v, ok := row[column]
	if !ok {
		return nil, fmt.Errorf("%w: row %d at %s has no column %s", ErrLookup, id, loc, column)
	}
	return v, nil
}

func (s *fakeStore) RecordAudit(ctx context.Context, runID string, rows []AuditRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits[runID] = append(s.audits[runID], rows...)
	return nil
}

// columnValue reads one numeric column of a realized configuration back out
// of the store.
func columnValue(t *testing.T, s Store, cfg VariationID, loc Location, column string) float64 {
	t.Helper()
	raw, err := s.ReferenceValue(context.Background(), loc, cfg[loc], column)
	if err != nil {
		t.Fatalf("ReferenceValue(%s, %d, %s): %v", loc, cfg[loc], column, err)
	}
	v, err := asFloat(raw)
	if err != nil {
		t.Fatalf("column %s is not numeric: %v", column, err)
	}
	return v
}

// evalFunc adapts a plain function to the Evaluator interface.
type evalFunc func(ctx context.Context, cfg VariationID, objective string, nReplicates int) ([]Replicate, error)

func (f evalFunc) Evaluate(ctx context.Context, cfg VariationID, objective string, nReplicates int) ([]Replicate, error) {
	return f(ctx, cfg, objective, nReplicates)
}

// objectiveOf builds an Evaluator that computes one exact replicate per
// configuration from a plain function.
func objectiveOf(fn func(cfg VariationID) float64) Evaluator {
	return evalFunc(func(ctx context.Context, cfg VariationID, objective string, nReplicates int) ([]Replicate, error) {
		return []Replicate{{Value: fn(cfg), Valid: true}}, nil
	})
}

// mustParse builds a ParsedVariations or fails the test.
func mustParse(t *testing.T, variations ...Variation) *ParsedVariations {
	t.Helper()
	pv, err := ParseVariations(variations)
	if err != nil {
		t.Fatalf("ParseVariations: %v", err)
	}
	return pv
}

// mustDiscrete builds a DiscreteVariation or fails the test.
func mustDiscrete(t *testing.T, loc Location, target TargetPath, values ...any) *DiscreteVariation {
	t.Helper()
	v, err := NewDiscreteVariation(loc, target, values)
	if err != nil {
		t.Fatalf("NewDiscreteVariation(%s): %v", target.ColumnName(), err)
	}
	return v
}

// mustDistributed builds a DistributedVariation or fails the test.
func mustDistributed(t *testing.T, loc Location, target TargetPath, dist Distribution, flip bool) *DistributedVariation {
	t.Helper()
	v, err := NewDistributedVariation(loc, target, dist, flip)
	if err != nil {
		t.Fatalf("NewDistributedVariation(%s): %v", target.ColumnName(), err)
	}
	return v
}
