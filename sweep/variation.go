package sweep

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Location identifies which storage location a varied parameter lives in.
// Each location maps to its own table of configuration rows in the store.
type Location string

const (
	LocationConfig        Location = "config"
	LocationRulesets      Location = "rulesets"
	LocationIntracellular Location = "intracellular"
	LocationICCell        Location = "ic_cell"
	LocationICECM         Location = "ic_ecm"
)

// Locations lists every storage location in stable order.
var Locations = []Location{
	LocationConfig,
	LocationRulesets,
	LocationIntracellular,
	LocationICCell,
	LocationICECM,
}

// Valid reports whether l is a recognized storage location.
func (l Location) Valid() bool {
	for _, loc := range Locations {
		if l == loc {
			return true
		}
	}
	return false
}

// TargetPath is the symbolic path addressing one varied parameter inside its
// storage location, e.g. {"cell_definitions", "tumor", "phenotype", "cycle", "rate"}.
type TargetPath []string

// ColumnName renders the path as a single store column key.
func (p TargetPath) ColumnName() string {
	return strings.Join(p, "/")
}

// ContinuousDim is the dimension-cardinality sentinel for continuous
// (distributed) dimensions.
const ContinuousDim = -1

// Distribution is the continuous-distribution contract consumed by
// DistributedVariation. Satisfied by the gonum/stat/distuv distributions
// (Uniform, Normal, LogNormal, ...).
type Distribution interface {
	// CDF returns the cumulative probability at x.
	CDF(x float64) float64
	// Quantile returns the inverse CDF at probability p in [0,1].
	Quantile(p float64) float64
}

// ElementaryVariation is one varied parameter: enumerated (DiscreteVariation)
// or continuous (DistributedVariation).
//
// Invariant: Inverse(CDF(v)) == v for every v in the variation's domain.
type ElementaryVariation interface {
	Variation

	Location() Location
	Target() TargetPath

	// CDF maps a domain value to a coordinate in [0,1]. Discrete variations
	// fail with ErrLookup when the value is not a member.
	CDF(value any) (float64, error)

	// Inverse maps a CDF coordinate in [0,1] back to a domain value.
	Inverse(cdf float64) any
}

// Variation is one sampled dimension: a bare elementary variation or a
// CoVariation group.
type Variation interface {
	// Elements returns the elementary variations owned by this dimension.
	Elements() []ElementaryVariation
	// Cardinality returns the number of discrete levels, or ContinuousDim.
	Cardinality() int
}

// === DiscreteVariation ===

// DiscreteVariation enumerates an ordered list of candidate values for one
// target. Values must be comparable with reflect.DeepEqual.
type DiscreteVariation struct {
	location Location
	target   TargetPath
	values   []any
}

// NewDiscreteVariation builds a discrete variation over a non-empty ordered
// value list.
func NewDiscreteVariation(location Location, target TargetPath, values []any) (*DiscreteVariation, error) {
	if !location.Valid() {
		return nil, fmt.Errorf("%w: unknown location %q", ErrValidation, location)
	}
	if len(target) == 0 {
		return nil, fmt.Errorf("%w: empty target path", ErrValidation)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: discrete variation %s has no values", ErrValidation, target.ColumnName())
	}
	return &DiscreteVariation{location: location, target: target, values: values}, nil
}

func (v *DiscreteVariation) Location() Location { return v.location }
func (v *DiscreteVariation) Target() TargetPath { return v.target }

// Values returns the ordered value list.
func (v *DiscreteVariation) Values() []any { return v.values }

// Cardinality returns the number of enumerated values.
func (v *DiscreteVariation) Cardinality() int { return len(v.values) }

// Elements returns the variation itself as a singleton dimension.
func (v *DiscreteVariation) Elements() []ElementaryVariation {
	return []ElementaryVariation{v}
}

// CDF returns index/(n-1) for the queried member. A single-valued variation
// is degenerate: its only member sits at 0.
func (v *DiscreteVariation) CDF(value any) (float64, error) {
	n := len(v.values)
	for i, candidate := range v.values {
		if reflect.DeepEqual(candidate, value) {
			if n == 1 {
				return 0, nil
			}
			return float64(i) / float64(n-1), nil
		}
	}
	return 0, fmt.Errorf("%w: value %v is not a member of %s", ErrLookup, value, v.target.ColumnName())
}

// Inverse selects the value whose bin contains the CDF coordinate:
// values[clamp(floor(cdf*n), 0, n-1)].
func (v *DiscreteVariation) Inverse(cdf float64) any {
	n := len(v.values)
	idx := int(math.Floor(cdf * float64(n)))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return v.values[idx]
}

// === DistributedVariation ===

// DistributedVariation draws a target's value from a continuous distribution.
// Flip mirrors the CDF coordinate so covariation members can move in lockstep
// or in mirror image off one shared draw.
type DistributedVariation struct {
	location Location
	target   TargetPath
	dist     Distribution
	flip     bool
}

// NewDistributedVariation builds a continuous variation over dist.
func NewDistributedVariation(location Location, target TargetPath, dist Distribution, flip bool) (*DistributedVariation, error) {
	if !location.Valid() {
		return nil, fmt.Errorf("%w: unknown location %q", ErrValidation, location)
	}
	if len(target) == 0 {
		return nil, fmt.Errorf("%w: empty target path", ErrValidation)
	}
	if dist == nil {
		return nil, fmt.Errorf("%w: distributed variation %s has no distribution", ErrValidation, target.ColumnName())
	}
	return &DistributedVariation{location: location, target: target, dist: dist, flip: flip}, nil
}

func (v *DistributedVariation) Location() Location { return v.location }
func (v *DistributedVariation) Target() TargetPath { return v.target }

// Flip reports whether the CDF coordinate is mirrored.
func (v *DistributedVariation) Flip() bool { return v.flip }

// Cardinality returns ContinuousDim.
func (v *DistributedVariation) Cardinality() int { return ContinuousDim }

// Elements returns the variation itself as a singleton dimension.
func (v *DistributedVariation) Elements() []ElementaryVariation {
	return []ElementaryVariation{v}
}

// CDF returns F(x), or 1-F(x) when flipped.
func (v *DistributedVariation) CDF(value any) (float64, error) {
	x, err := asFloat(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", v.target.ColumnName(), err)
	}
	f := v.dist.CDF(x)
	if v.flip {
		return 1 - f, nil
	}
	return f, nil
}

// Inverse returns Quantile(cdf), or Quantile(1-cdf) when flipped.
func (v *DistributedVariation) Inverse(cdf float64) any {
	p := cdf
	if v.flip {
		p = 1 - cdf
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return v.dist.Quantile(p)
}

func asFloat(value any) (float64, error) {
	switch x := value.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("%w: value %v (%T) is not numeric", ErrLookup, value, value)
	}
}

// === CoVariation ===

// CoVariation groups elementary variations that are sampled jointly from one
// shared coordinate: materialization feeds a single scalar CDF draw to every
// member's Inverse, so members move together (or mirrored, via Flip).
type CoVariation struct {
	elements    []ElementaryVariation
	cardinality int
}

// NewCoVariation validates that all members are discrete with equal length,
// or all distributed, and fails immediately otherwise.
func NewCoVariation(elements ...ElementaryVariation) (*CoVariation, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: covariation has no members", ErrValidation)
	}
	cardinality := elements[0].Cardinality()
	for _, el := range elements[1:] {
		c := el.Cardinality()
		if (cardinality == ContinuousDim) != (c == ContinuousDim) {
			return nil, fmt.Errorf("%w: covariation mixes discrete and distributed members", ErrValidation)
		}
		if cardinality != ContinuousDim && c != cardinality {
			return nil, fmt.Errorf("%w: covariation members have unequal lengths (%d vs %d)",
				ErrValidation, cardinality, c)
		}
	}
	cp := make([]ElementaryVariation, len(elements))
	copy(cp, elements)
	return &CoVariation{elements: cp, cardinality: cardinality}, nil
}

// Elements returns the ordered member list.
func (c *CoVariation) Elements() []ElementaryVariation { return c.elements }

// Cardinality returns the shared member cardinality, or ContinuousDim.
func (c *CoVariation) Cardinality() int { return c.cardinality }

// Inverse fans one scalar CDF coordinate out to every member, in member order.
func (c *CoVariation) Inverse(cdf float64) []any {
	values := make([]any, len(c.elements))
	for i, el := range c.elements {
		values[i] = el.Inverse(cdf)
	}
	return values
}

// asCoVariation wraps a bare elementary variation as a singleton CoVariation.
// CoVariations pass through unchanged.
func asCoVariation(v Variation) (*CoVariation, error) {
	if cv, ok := v.(*CoVariation); ok {
		return cv, nil
	}
	if el, ok := v.(ElementaryVariation); ok {
		return NewCoVariation(el)
	}
	return nil, fmt.Errorf("%w: unrecognized variation type %T", ErrValidation, v)
}
