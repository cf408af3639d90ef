package sweep

import (
	"fmt"
	"sort"
	"strings"
)

// VariationID carries one persisted configuration id per storage location.
// Locations untouched by any variation keep the caller-supplied reference id.
type VariationID map[Location]int64

// Clone returns an independent copy.
func (id VariationID) Clone() VariationID {
	out := make(VariationID, len(id))
	for loc, v := range id {
		out[loc] = v
	}
	return out
}

// Key renders a canonical string form ("config=3,ic_cell=0,...") usable as a
// memoization map key. Locations appear in sorted order so equal ids always
// produce equal keys.
func (id VariationID) Key() string {
	locs := make([]string, 0, len(id))
	for loc := range id {
		locs = append(locs, string(loc))
	}
	sort.Strings(locs)
	parts := make([]string, len(locs))
	for i, loc := range locs {
		parts[i] = fmt.Sprintf("%s=%d", loc, id[Location(loc)])
	}
	return strings.Join(parts, ",")
}

// SampledDesign is a realized design: per-matrix rows of configuration ids
// plus the auxiliary data GSA calculators need to interpret them.
type SampledDesign struct {
	// Method names the sampling method that produced the design.
	Method string

	// Dims copies ParsedVariations.Dims for the sampled variation set.
	Dims []int

	// IDs holds the realized configuration ids, grouped by sample matrix.
	// Grid and LHS and RBD produce a single matrix; Sobol produces
	// NMatrices of them. Grid rows run in N-dimensional grid order with the
	// first-listed dimension slowest-varying.
	IDs [][]VariationID

	// CDFs holds the raw design coordinates, [matrix][row][dim].
	// Nil for Grid, which enumerates concrete values directly.
	CDFs [][][]float64

	// SortOrder is RBD-only: per dimension, the row permutation recovering
	// angular order (SortOrder[d][rank] = row index).
	SortOrder [][]int

	// HalfPeriod is RBD-only: the sorted signal covers half a sine period
	// and must be mirror-extended before the Fourier step.
	HalfPeriod bool
}

// Rows returns the per-matrix sample count.
func (d *SampledDesign) Rows() int {
	if len(d.IDs) == 0 {
		return 0
	}
	return len(d.IDs[0])
}
