package sweep

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// GridSampling enumerates the full tensor grid over discrete dimensions:
// every combination of every dimension's values, materialized exactly once.
type GridSampling struct{}

// Name implements SamplingMethod.
func (GridSampling) Name() string { return "grid" }

func (g GridSampling) sample(ctx context.Context, mat *Materializer, pv *ParsedVariations) (*SampledDesign, error) {
	if !pv.AllDiscrete() {
		return nil, fmt.Errorf("%w: grid sampling requires all dimensions discrete", ErrValidation)
	}
	d := pv.NumDims()
	total := pv.GridSize()

	// Strides for standard N-dimensional grid order: first-listed dimension
	// slowest-varying. This order is part of the contract and must be
	// reproduced exactly.
	strides := make([]int, d)
	stride := total
	for dim := 0; dim < d; dim++ {
		stride /= pv.Dims[dim]
		strides[dim] = stride
	}

	// Per location, each distinct tuple of that location's dimension
	// indices maps to one persisted row. The memo keeps repeat grid cells
	// from re-submitting the same tuple while the broadcast across unowned
	// dimensions fills the full grid shape.
	memo := make(map[Location]map[string]int64)
	for loc := range pv.ByLocation {
		memo[loc] = make(map[string]int64)
	}

	ids := make([]VariationID, total)
	indices := make([]int, d)
	cdfs := make([]float64, d)
	for flat := 0; flat < total; flat++ {
		for dim := 0; dim < d; dim++ {
			indices[dim] = (flat / strides[dim]) % pv.Dims[dim]
			// Bin-center coordinate: Inverse recovers exactly values[index].
			cdfs[dim] = (float64(indices[dim]) + 0.5) / float64(pv.Dims[dim])
		}
		id := mat.Reference.Clone()
		for _, loc := range Locations {
			bucket := pv.ByLocation[loc]
			if bucket == nil {
				continue
			}
			key := locationComboKey(bucket, indices)
			rowID, ok := memo[loc][key]
			if !ok {
				varied := make(map[string]any, len(bucket.Variations))
				for i, el := range bucket.Variations {
					varied[el.Target().ColumnName()] = el.Inverse(cdfs[bucket.DimIndices[i]])
				}
				var err error
				rowID, err = mat.Store.GetOrInsert(ctx, loc, mat.Reference[loc], varied)
				if err != nil {
					return nil, fmt.Errorf("materializing %s grid cell: %w", loc, err)
				}
				memo[loc][key] = rowID
			}
			id[loc] = rowID
		}
		ids[flat] = id
	}

	return &SampledDesign{
		Method: g.Name(),
		Dims:   append([]int(nil), pv.Dims...),
		IDs:    [][]VariationID{ids},
	}, nil
}

// locationComboKey identifies the tuple of dimension indices a location's
// variations draw from.
func locationComboKey(bucket *LocationVariations, indices []int) string {
	var b strings.Builder
	for _, dim := range bucket.DimIndices {
		b.WriteString(strconv.Itoa(indices[dim]))
		b.WriteByte('|')
	}
	return b.String()
}
