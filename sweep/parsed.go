package sweep

import "fmt"

// LocationVariations holds, for one storage location, exactly the elementary
// variations living there and the index of the dimension each one is sampled
// from. Sampling methods work one location at a time off this bucket without
// re-scanning the whole variation list.
type LocationVariations struct {
	Variations []ElementaryVariation
	DimIndices []int
}

// ParsedVariations is the per-run view of an ordered variation list:
// normalized covariations, per-dimension cardinalities, and the by-location
// partition. Derived once per GSA invocation and read-only thereafter.
type ParsedVariations struct {
	// Dims holds the cardinality of each sampled dimension; ContinuousDim
	// marks a continuous dimension.
	Dims []int

	// Variations is the normalized dimension list: bare elementary
	// variations arrive auto-wrapped as singleton CoVariations.
	Variations []*CoVariation

	// ByLocation partitions every elementary variation by storage location,
	// stable by first appearance. Per-location dim indices are
	// non-decreasing.
	ByLocation map[Location]*LocationVariations
}

// ParseVariations normalizes and partitions an ordered variation list.
func ParseVariations(variations []Variation) (*ParsedVariations, error) {
	if len(variations) == 0 {
		return nil, fmt.Errorf("%w: no variations given", ErrValidation)
	}
	pv := &ParsedVariations{
		Dims:       make([]int, 0, len(variations)),
		Variations: make([]*CoVariation, 0, len(variations)),
		ByLocation: make(map[Location]*LocationVariations),
	}
	for dim, v := range variations {
		cv, err := asCoVariation(v)
		if err != nil {
			return nil, fmt.Errorf("dimension %d: %w", dim, err)
		}
		pv.Variations = append(pv.Variations, cv)
		pv.Dims = append(pv.Dims, cv.Cardinality())
		for _, el := range cv.Elements() {
			bucket := pv.ByLocation[el.Location()]
			if bucket == nil {
				bucket = &LocationVariations{}
				pv.ByLocation[el.Location()] = bucket
			}
			bucket.Variations = append(bucket.Variations, el)
			bucket.DimIndices = append(bucket.DimIndices, dim)
		}
	}
	return pv, nil
}

// NumDims returns the number of sampled dimensions.
func (pv *ParsedVariations) NumDims() int { return len(pv.Dims) }

// AllDiscrete reports whether every dimension is discrete.
func (pv *ParsedVariations) AllDiscrete() bool {
	for _, d := range pv.Dims {
		if d == ContinuousDim {
			return false
		}
	}
	return true
}

// GridSize returns the product of all discrete dimension cardinalities.
// Only meaningful when AllDiscrete() holds.
func (pv *ParsedVariations) GridSize() int {
	total := 1
	for _, d := range pv.Dims {
		total *= d
	}
	return total
}
