package sweep

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// RBDSampling draws the periodic design used by random-balance sensitivity
// estimation: each dimension's samples trace a sine when reordered by angle.
//
// UseSobol derives angles from a Sobol half-sequence, covering half a sine
// period (the signal is mirror-extended before the Fourier step). Otherwise
// angles are evenly spaced over (-pi, pi], independently permuted per
// dimension, covering one full period.
type RBDSampling struct {
	N        int
	UseSobol bool
	// RNG drives the per-dimension angle permutations; required unless
	// UseSobol.
	RNG *rand.Rand
}

// Name implements SamplingMethod.
func (RBDSampling) Name() string { return "rbd" }

func (r RBDSampling) sample(ctx context.Context, mat *Materializer, pv *ParsedVariations) (*SampledDesign, error) {
	cdfs, sortOrder, err := GenerateRBDCDFs(r.RNG, r.N, pv.NumDims(), r.UseSobol)
	if err != nil {
		return nil, err
	}
	ids, err := mat.rows(ctx, pv, cdfs)
	if err != nil {
		return nil, err
	}
	return &SampledDesign{
		Method:     r.Name(),
		Dims:       append([]int(nil), pv.Dims...),
		IDs:        [][]VariationID{ids},
		CDFs:       [][][]float64{cdfs},
		SortOrder:  sortOrder,
		HalfPeriod: r.UseSobol,
	}, nil
}

// GenerateRBDCDFs returns an n x d matrix of periodic design coordinates and,
// per dimension, the row permutation recovering angular order (needed to
// reorder objective values before the Fourier step).
func GenerateRBDCDFs(rng *rand.Rand, n, d int, useSobol bool) ([][]float64, [][]int, error) {
	if n < 2 || d < 1 {
		return nil, nil, fmt.Errorf("%w: rbd needs n >= 2 and d >= 1, got n=%d d=%d", ErrValidation, n, d)
	}

	angles := make([][]float64, n)
	for i := range angles {
		angles[i] = make([]float64, d)
	}
	if useSobol {
		// Half period: theta in [-pi/2, pi/2), monotone in the sequence
		// coordinate.
		points, err := GenerateSobolCDFs(n, d, SobolOptions{})
		if err != nil {
			return nil, nil, err
		}
		for i := 0; i < n; i++ {
			for dim := 0; dim < d; dim++ {
				angles[i][dim] = math.Pi * (points[i][dim] - 0.5)
			}
		}
	} else {
		if rng == nil {
			return nil, nil, fmt.Errorf("%w: rbd requires an explicit RNG", ErrValidation)
		}
		// Full period: evenly spaced angles over (-pi, pi], shuffled
		// independently per dimension.
		for dim := 0; dim < d; dim++ {
			perm := rng.Perm(n)
			for i := 0; i < n; i++ {
				angles[i][dim] = -math.Pi + 2*math.Pi*float64(perm[i]+1)/float64(n)
			}
		}
	}

	cdfs := make([][]float64, n)
	for i := range cdfs {
		cdfs[i] = make([]float64, d)
		for dim := 0; dim < d; dim++ {
			cdfs[i][dim] = 0.5 + 0.5*math.Sin(angles[i][dim])
		}
	}

	sortOrder := make([][]int, d)
	for dim := 0; dim < d; dim++ {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return angles[order[a]][dim] < angles[order[b]][dim]
		})
		sortOrder[dim] = order
	}
	return cdfs, sortOrder, nil
}
