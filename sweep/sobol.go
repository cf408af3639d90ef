package sweep

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// Randomization selects how Sobol points are randomized.
type Randomization string

const (
	// RandomizationNone keeps the deterministic sequence.
	RandomizationNone Randomization = "none"
	// RandomizationShift applies a per-dimension Cranley-Patterson rotation
	// (add a uniform offset, mod 1).
	RandomizationShift Randomization = "shift"
)

// SobolOptions tune sequence randomization and subsequence selection.
type SobolOptions struct {
	Randomization Randomization
	// SkipStart overrides the near-power-of-two default for discarding the
	// leading origin point. Nil means "use the decision table".
	SkipStart *bool
	// IncludeOne overrides the default for appending the all-ones point.
	IncludeOne *bool
	// RNG is required for RandomizationShift.
	RNG *rand.Rand
}

// SobolSampling draws N points per matrix from the low-discrepancy sequence,
// NMatrices matrices side by side (dimension blocks), as Sobol' index
// estimation requires.
type SobolSampling struct {
	N         int
	NMatrices int
	Options   SobolOptions
}

// Name implements SamplingMethod.
func (SobolSampling) Name() string { return "sobol" }

func (s SobolSampling) sample(ctx context.Context, mat *Materializer, pv *ParsedVariations) (*SampledDesign, error) {
	nMatrices := s.NMatrices
	if nMatrices < 1 {
		nMatrices = 1
	}
	d := pv.NumDims()
	points, err := GenerateSobolCDFs(s.N, d*nMatrices, s.Options)
	if err != nil {
		return nil, err
	}

	ids := make([][]VariationID, nMatrices)
	cdfs := make([][][]float64, nMatrices)
	for m := 0; m < nMatrices; m++ {
		matrix := make([][]float64, s.N)
		for row := 0; row < s.N; row++ {
			matrix[row] = points[row][m*d : (m+1)*d : (m+1)*d]
		}
		cdfs[m] = matrix
		ids[m], err = mat.rows(ctx, pv, matrix)
		if err != nil {
			return nil, fmt.Errorf("matrix %d: %w", m, err)
		}
	}
	return &SampledDesign{
		Method: s.Name(),
		Dims:   append([]int(nil), pv.Dims...),
		IDs:    ids,
		CDFs:   cdfs,
	}, nil
}

// GenerateSobolCDFs returns an n x d matrix of Sobol CDF coordinates with the
// near-power-of-two subsequence policy applied (see subsequence.go).
func GenerateSobolCDFs(n, d int, opts SobolOptions) ([][]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: sobol needs n >= 1, got %d", ErrValidation, n)
	}
	seq, err := newSobolSequence(d)
	if err != nil {
		return nil, err
	}
	var shift []float64
	switch opts.Randomization {
	case RandomizationShift:
		if opts.RNG == nil {
			return nil, fmt.Errorf("%w: sobol shift randomization requires an explicit RNG", ErrValidation)
		}
		shift = make([]float64, d)
		for dim := range shift {
			shift[dim] = opts.RNG.Float64()
		}
	case RandomizationNone, "":
	default:
		return nil, fmt.Errorf("%w: unknown sobol randomization %q", ErrValidation, opts.Randomization)
	}

	w := sobolWindowFor(n, opts.SkipStart, opts.IncludeOne)
	seq.Skip(w.Skip)
	points := make([][]float64, 0, n)
	for i := 0; i < w.Take; i++ {
		point := seq.Next()
		if shift != nil {
			for dim := range point {
				_, frac := math.Modf(point[dim] + shift[dim])
				point[dim] = frac
			}
		}
		points = append(points, point)
	}
	if w.AppendOne {
		one := make([]float64, d)
		for dim := range one {
			one[dim] = 1
		}
		points = append(points, one)
	}
	return points, nil
}
