// Package store provides the persistence collaborators for sweep:
// deduplicating configuration-row stores with atomic get-or-insert semantics.
//
// Memory is the default (and the test double); SQLite adds durability and
// the persisted design-audit artifact. Both guarantee the same invariant:
// identical tuples always resolve to the same id, independent of which
// sampling method produced them or how many times they are submitted.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/variant-sim/variant-sim/sweep"
)

// canonicalTuple renders a full column set as a canonical string: sorted
// column names, JSON-encoded values. Equal tuples always render equally, so
// the string doubles as the dedup key.
func canonicalTuple(columns map[string]any) (string, error) {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		encoded, err := json.Marshal(columns[name])
		if err != nil {
			return "", fmt.Errorf("encoding column %s: %w", name, err)
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.Write(encoded)
		b.WriteByte(';')
	}
	return b.String(), nil
}

func mergeColumns(base, varied map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(varied))
	for name, v := range base {
		merged[name] = v
	}
	for name, v := range varied {
		merged[name] = v
	}
	return merged
}

// Memory is an in-process store: a mutex-guarded canonical-tuple index per
// location. The mutex makes get-or-insert a single atomic step under
// concurrent callers.
type Memory struct {
	mu     sync.Mutex
	tables map[sweep.Location]*memTable
	audits map[string][]sweep.AuditRow
}

type memTable struct {
	byTuple map[string]int64
	byID    map[int64]map[string]any
	nextID  int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[sweep.Location]*memTable),
		audits: make(map[string][]sweep.AuditRow),
	}
}

func (m *Memory) table(loc sweep.Location) *memTable {
	t := m.tables[loc]
	if t == nil {
		t = &memTable{byTuple: make(map[string]int64), byID: make(map[int64]map[string]any)}
		m.tables[loc] = t
	}
	return t
}

// Seed inserts a reference row with the given columns and returns its id.
func (m *Memory) Seed(ctx context.Context, loc sweep.Location, columns map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(loc)
	tuple, err := canonicalTuple(columns)
	if err != nil {
		return 0, err
	}
	if id, ok := t.byTuple[tuple]; ok {
		return id, nil
	}
	id := t.nextID
	t.nextID++
	t.byTuple[tuple] = id
	t.byID[id] = mergeColumns(columns, nil)
	return id, nil
}

// GetOrInsert implements sweep.Store.
func (m *Memory) GetOrInsert(ctx context.Context, loc sweep.Location, baseID int64, varied map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(loc)
	base, ok := t.byID[baseID]
	if !ok {
		return 0, fmt.Errorf("%w: no reference row %d at %s", sweep.ErrLookup, baseID, loc)
	}
	columns := mergeColumns(base, varied)
	tuple, err := canonicalTuple(columns)
	if err != nil {
		return 0, err
	}
	if id, ok := t.byTuple[tuple]; ok {
		return id, nil
	}
	id := t.nextID
	t.nextID++
	t.byTuple[tuple] = id
	t.byID[id] = columns
	return id, nil
}

// ReferenceValue implements sweep.Store.
func (m *Memory) ReferenceValue(ctx context.Context, loc sweep.Location, id int64, column string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.table(loc).byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: no row %d at %s", sweep.ErrLookup, id, loc)
	}
	v, ok := row[column]
	if !ok {
		return nil, fmt.Errorf("%w: row %d at %s has no column %s", sweep.ErrLookup, id, loc, column)
	}
	return v, nil
}

// RecordAudit implements sweep.AuditSink.
func (m *Memory) RecordAudit(ctx context.Context, runID string, rows []sweep.AuditRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits[runID] = append(m.audits[runID], rows...)
	return nil
}

// Audit returns the recorded design audit for a run.
func (m *Memory) Audit(runID string) []sweep.AuditRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audits[runID]
}

// RowCount returns the number of persisted rows at a location.
func (m *Memory) RowCount(loc sweep.Location) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.table(loc).byID)
}

var (
	_ sweep.Store     = (*Memory)(nil)
	_ sweep.AuditSink = (*Memory)(nil)
)
