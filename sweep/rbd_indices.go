package sweep

import (
	"context"
	"fmt"
	"math/cmplx"
	"math/rand"

	"gonum.org/v1/gonum/dsp/fourier"
)

// defaultNumHarmonics is the number of leading non-DC Fourier coefficients
// attributed to a feature when the caller does not choose.
const defaultNumHarmonics = 6

// RBD is random-balance-design sensitivity estimation: every feature is
// varied along its own periodic curve in one shared design, and each
// feature's index is the share of response energy in the first harmonics of
// its own angular ordering.
type RBD struct {
	// N is the number of design points.
	N int
	// UseSobol selects the half-period Sobol-derived design.
	UseSobol bool
	// NumHarmonics is the number of leading non-DC coefficients counted as
	// the feature's signal; 0 means defaultNumHarmonics.
	NumHarmonics int
	// RNG drives angle permutations; required unless UseSobol.
	RNG *rand.Rand
	// IgnoreIndices is not supported for RBD: all features share the same
	// design points, so skipping one saves nothing.
	IgnoreIndices []int
}

// Name implements GSAMethod.
func (RBD) Name() string { return "rbd" }

func (r RBD) design(ctx context.Context, mat *Materializer, pv *ParsedVariations) (gsaDesign, error) {
	if len(r.IgnoreIndices) > 0 {
		return nil, fmt.Errorf("%w: ignore_indices is not supported for RBD", ErrUnsupportedOption)
	}
	numHarmonics := r.NumHarmonics
	if numHarmonics <= 0 {
		numHarmonics = defaultNumHarmonics
	}
	sampling := RBDSampling{N: r.N, UseSobol: r.UseSobol, RNG: r.RNG}
	base, err := sampling.sample(ctx, mat, pv)
	if err != nil {
		return nil, err
	}
	return &rbdDesign{base: base, numHarmonics: numHarmonics}, nil
}

// RBDStats is the per-objective statistic bundle for RBD analysis.
type RBDStats struct {
	// Indices holds one sensitivity index per feature.
	Indices []float64
}

func (RBDStats) method() string { return "rbd" }

type rbdDesign struct {
	base         *SampledDesign
	numHarmonics int
}

func (d *rbdDesign) compute(ctx context.Context, cache *objectiveCache, objective string) (StatBundle, error) {
	ids := d.base.IDs[0]
	responses := make([]float64, len(ids))
	for i, id := range ids {
		v, err := cache.Value(ctx, id, objective)
		if err != nil {
			return nil, err
		}
		responses[i] = v
	}

	stats := RBDStats{Indices: make([]float64, len(d.base.SortOrder))}
	for feature, order := range d.base.SortOrder {
		ordered := make([]float64, 0, 2*len(order))
		for _, row := range order {
			ordered = append(ordered, responses[row])
		}
		if d.base.HalfPeriod {
			ordered = mirrorExtend(ordered)
		}
		index, err := harmonicEnergyRatio(ordered, d.numHarmonics)
		if err != nil {
			return nil, fmt.Errorf("feature %d, objective %s: %w", feature, objective, err)
		}
		stats.Indices[feature] = index
	}
	return stats, nil
}

// mirrorExtend appends the reversed interior points so a half-period signal
// becomes periodic without a discontinuity at the wrap-around.
func mirrorExtend(signal []float64) []float64 {
	for i := len(signal) - 2; i >= 1; i-- {
		signal = append(signal, signal[i])
	}
	return signal
}

// harmonicEnergyRatio computes 2*sum(|first M non-DC coefficients|^2) over
// the total non-DC spectral energy. The real-input DFT yields the half
// spectrum; interior coefficients stand for a conjugate pair and weigh
// double, the Nyquist bin (even lengths) weighs once.
func harmonicEnergyRatio(signal []float64, numHarmonics int) (float64, error) {
	n := len(signal)
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, signal)

	var num, den float64
	for k := 1; k < len(coeffs); k++ {
		weight := 2.0
		if n%2 == 0 && k == n/2 {
			weight = 1.0
		}
		energy := weight * cmplx.Abs(coeffs[k]) * cmplx.Abs(coeffs[k])
		den += energy
		if k <= numHarmonics {
			num += energy
		}
	}
	if den == 0 {
		return 0, fmt.Errorf("%w: response has no non-DC spectral energy", ErrComputation)
	}
	return num / den, nil
}

func (d *rbdDesign) auditRows() []AuditRow {
	rows := make([]AuditRow, len(d.base.IDs[0]))
	for i, id := range d.base.IDs[0] {
		rows[i] = AuditRow{Row: i, CDFs: d.base.CDFs[0][i], IDs: id}
	}
	return rows
}
