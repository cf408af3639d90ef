package sweep

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// LHSSampling draws a Latin hypercube design: N samples whose per-dimension
// coordinates occupy all N equal bins of [0,1] exactly once.
type LHSSampling struct {
	// N is the number of samples.
	N int
	// AddNoise replaces bin centers with a uniform point inside each bin.
	AddNoise bool
	// Orthogonalize upgrades to a strength-2 orthogonal-array LHS when
	// N = k^d for an integer k >= 2; otherwise it falls back to a plain
	// hypercube with a warning.
	Orthogonalize bool
	// RNG drives the permutations; required.
	RNG *rand.Rand
}

// Name implements SamplingMethod.
func (LHSSampling) Name() string { return "lhs" }

func (l LHSSampling) sample(ctx context.Context, mat *Materializer, pv *ParsedVariations) (*SampledDesign, error) {
	cdfs, err := GenerateLHSCDFs(l.RNG, l.N, pv.NumDims(), l.AddNoise, l.Orthogonalize)
	if err != nil {
		return nil, err
	}
	ids, err := mat.rows(ctx, pv, cdfs)
	if err != nil {
		return nil, err
	}
	return &SampledDesign{
		Method: l.Name(),
		Dims:   append([]int(nil), pv.Dims...),
		IDs:    [][]VariationID{ids},
		CDFs:   [][][]float64{cdfs},
	}, nil
}

// GenerateLHSCDFs returns an n x d matrix of Latin hypercube coordinates in
// [0,1]. Pure given rng.
func GenerateLHSCDFs(rng *rand.Rand, n, d int, addNoise, orthogonalize bool) ([][]float64, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: lhs requires an explicit RNG", ErrValidation)
	}
	if n < 1 || d < 1 {
		return nil, fmt.Errorf("%w: lhs needs n >= 1 and d >= 1, got n=%d d=%d", ErrValidation, n, d)
	}
	if orthogonalize && d > 1 {
		if k, ok := perfectRoot(n, d); ok {
			return orthogonalLHS(rng, n, d, k, addNoise), nil
		}
		logrus.Warnf("orthogonal LHS needs n = k^d (n=%d, d=%d); falling back to plain LHS", n, d)
	}

	cdfs := make([][]float64, n)
	for i := range cdfs {
		cdfs[i] = make([]float64, d)
	}
	for dim := 0; dim < d; dim++ {
		perm := rng.Perm(n)
		for i := 0; i < n; i++ {
			cdfs[i][dim] = (float64(perm[i]) + binOffset(rng, addNoise)) / float64(n)
		}
	}
	return cdfs, nil
}

// orthogonalLHS builds an orthogonal-array-based hypercube for n = k^d.
// The base-k digits of each sample index give its coarse bin per dimension
// (digit values permuted per dimension), so any two dimensions project onto a
// full k x k grid with exactly k^(d-2) samples per cell; fine positions within
// each coarse bin are assigned by random permutation, preserving the
// one-sample-per-fine-bin hypercube property.
func orthogonalLHS(rng *rand.Rand, n, d, k int, addNoise bool) [][]float64 {
	cdfs := make([][]float64, n)
	for i := range cdfs {
		cdfs[i] = make([]float64, d)
	}
	binSize := n / k
	digitStride := make([]int, d)
	stride := n
	for dim := 0; dim < d; dim++ {
		stride /= k
		digitStride[dim] = stride
	}
	for dim := 0; dim < d; dim++ {
		digitPerm := rng.Perm(k)
		groups := make([][]int, k)
		for j := 0; j < n; j++ {
			digit := digitPerm[(j/digitStride[dim])%k]
			groups[digit] = append(groups[digit], j)
		}
		for coarse, members := range groups {
			order := rng.Perm(len(members))
			for pos, j := range members {
				fine := coarse*binSize + order[pos]
				cdfs[j][dim] = (float64(fine) + binOffset(rng, addNoise)) / float64(n)
			}
		}
	}
	return cdfs
}

// binOffset places a sample at its bin center, or uniformly inside the bin.
func binOffset(rng *rand.Rand, addNoise bool) float64 {
	if addNoise {
		return rng.Float64()
	}
	return 0.5
}

// perfectRoot finds an integer k >= 2 with k^d == n.
func perfectRoot(n, d int) (int, bool) {
	for k := 2; ; k++ {
		p := 1
		for i := 0; i < d; i++ {
			p *= k
			if p > n {
				return 0, false
			}
		}
		if p == n {
			return k, true
		}
	}
}
