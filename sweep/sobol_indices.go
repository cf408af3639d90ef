package sweep

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// FirstOrderEstimator selects the closed-form first-order variance estimator.
type FirstOrderEstimator string

const (
	FirstOrderSobol1993    FirstOrderEstimator = "Sobol1993"
	FirstOrderJansen1999   FirstOrderEstimator = "Jansen1999"
	FirstOrderSaltelli2010 FirstOrderEstimator = "Saltelli2010"
)

// TotalOrderEstimator selects the closed-form total-order variance estimator.
type TotalOrderEstimator string

const (
	TotalOrderHomma1996  TotalOrderEstimator = "Homma1996"
	TotalOrderJansen1999 TotalOrderEstimator = "Jansen1999"
	TotalOrderSobol2007  TotalOrderEstimator = "Sobol2007"
)

// Sobol' variance-based sensitivity analysis: two independent designs A and B
// plus, per feature of interest, the hybrid A_B(i) (A with column i replaced
// by B's column i).
type Sobol struct {
	// N is the number of rows per matrix.
	N int
	// FirstOrder and TotalOrder select the estimators; empty means
	// Jansen1999 for both.
	FirstOrder FirstOrderEstimator
	TotalOrder TotalOrderEstimator
	// IgnoreIndices lists features excluded from hybrid-matrix construction
	// to save evaluations; their indices are reported as ignored.
	IgnoreIndices []int
	// Options configure the underlying Sobol sequence.
	Options SobolOptions
}

// Name implements GSAMethod.
func (Sobol) Name() string { return "sobol" }

func (s Sobol) design(ctx context.Context, mat *Materializer, pv *ParsedVariations) (gsaDesign, error) {
	firstOrder := s.FirstOrder
	if firstOrder == "" {
		firstOrder = FirstOrderJansen1999
	}
	totalOrder := s.TotalOrder
	if totalOrder == "" {
		totalOrder = TotalOrderJansen1999
	}
	switch firstOrder {
	case FirstOrderSobol1993, FirstOrderJansen1999, FirstOrderSaltelli2010:
	default:
		return nil, fmt.Errorf("%w: unknown first-order estimator %q", ErrValidation, firstOrder)
	}
	switch totalOrder {
	case TotalOrderHomma1996, TotalOrderJansen1999, TotalOrderSobol2007:
	default:
		return nil, fmt.Errorf("%w: unknown total-order estimator %q", ErrValidation, totalOrder)
	}
	d := pv.NumDims()
	ignored := make([]bool, d)
	for _, idx := range s.IgnoreIndices {
		if idx < 0 || idx >= d {
			return nil, fmt.Errorf("%w: ignore index %d out of range [0,%d)", ErrValidation, idx, d)
		}
		ignored[idx] = true
	}

	sampling := SobolSampling{N: s.N, NMatrices: 2, Options: s.Options}
	base, err := sampling.sample(ctx, mat, pv)
	if err != nil {
		return nil, err
	}
	design := &sobolDesign{
		base:       base,
		a:          base.IDs[0],
		b:          base.IDs[1],
		hybrids:    make([][]VariationID, d),
		ignored:    ignored,
		firstOrder: firstOrder,
		totalOrder: totalOrder,
	}

	// Hybrid rows A_B(i): A's coordinates with column i taken from B.
	row := make([]float64, d)
	for i := 0; i < d; i++ {
		if ignored[i] {
			continue
		}
		design.hybrids[i] = make([]VariationID, s.N)
		for r := 0; r < s.N; r++ {
			copy(row, base.CDFs[0][r])
			row[i] = base.CDFs[1][r][i]
			id, err := mat.Row(ctx, pv, row)
			if err != nil {
				return nil, fmt.Errorf("hybrid matrix for feature %d: %w", i, err)
			}
			design.hybrids[i][r] = id
		}
	}
	return design, nil
}

// SobolIndex reports the estimated first- and total-order indices for one
// feature. Ignored features carry no estimate.
type SobolIndex struct {
	FirstOrder float64
	TotalOrder float64
	Ignored    bool
}

// SobolStats is the per-objective statistic bundle for Sobol' analysis.
type SobolStats struct {
	Features []SobolIndex
	// Variance is the pooled variance of the [A;B] evaluations that
	// normalizes every index.
	Variance float64
}

func (SobolStats) method() string { return "sobol" }

type sobolDesign struct {
	base       *SampledDesign
	a, b       []VariationID
	hybrids    [][]VariationID // [feature][row]; nil when ignored
	ignored    []bool
	firstOrder FirstOrderEstimator
	totalOrder TotalOrderEstimator
}

func (d *sobolDesign) compute(ctx context.Context, cache *objectiveCache, objective string) (StatBundle, error) {
	n := len(d.a)
	fA, err := evaluateColumn(ctx, cache, d.a, objective)
	if err != nil {
		return nil, err
	}
	fB, err := evaluateColumn(ctx, cache, d.b, objective)
	if err != nil {
		return nil, err
	}
	pooled := append(append(make([]float64, 0, 2*n), fA...), fB...)
	variance := stat.Variance(pooled, nil)
	if variance == 0 {
		return nil, fmt.Errorf("%w: objective %s has zero total variance; indices are undefined",
			ErrComputation, objective)
	}
	f0 := stat.Mean(pooled, nil)

	stats := SobolStats{Features: make([]SobolIndex, len(d.hybrids)), Variance: variance}
	for i, hybrid := range d.hybrids {
		if d.ignored[i] {
			stats.Features[i] = SobolIndex{Ignored: true}
			continue
		}
		fAB, err := evaluateColumn(ctx, cache, hybrid, objective)
		if err != nil {
			return nil, err
		}
		stats.Features[i] = SobolIndex{
			FirstOrder: firstOrderVariance(d.firstOrder, fA, fB, fAB, f0, variance) / variance,
			TotalOrder: totalOrderVariance(d.totalOrder, fA, fB, fAB, f0, variance) / variance,
		}
	}
	return stats, nil
}

// firstOrderVariance estimates V_i from the matrix evaluations. The pairing
// f(B), f(A_B(i)) shares only coordinate i.
func firstOrderVariance(estimator FirstOrderEstimator, fA, fB, fAB []float64, f0, variance float64) float64 {
	n := float64(len(fA))
	switch estimator {
	case FirstOrderSobol1993:
		var acc float64
		for j := range fB {
			acc += fB[j] * fAB[j]
		}
		return acc/n - f0*f0
	case FirstOrderSaltelli2010:
		var acc float64
		for j := range fB {
			acc += fB[j] * (fAB[j] - fA[j])
		}
		return acc / n
	default: // Jansen1999
		var acc float64
		for j := range fB {
			diff := fB[j] - fAB[j]
			acc += diff * diff
		}
		return variance - acc/(2*n)
	}
}

// totalOrderVariance estimates VT_i. The pairing f(A), f(A_B(i)) shares every
// coordinate except i.
func totalOrderVariance(estimator TotalOrderEstimator, fA, fB, fAB []float64, f0, variance float64) float64 {
	n := float64(len(fA))
	switch estimator {
	case TotalOrderHomma1996:
		var acc float64
		for j := range fA {
			acc += fA[j] * fAB[j]
		}
		return variance - acc/n + f0*f0
	case TotalOrderSobol2007:
		var acc float64
		for j := range fA {
			acc += fA[j] * (fA[j] - fAB[j])
		}
		return acc / n
	default: // Jansen1999
		var acc float64
		for j := range fA {
			diff := fA[j] - fAB[j]
			acc += diff * diff
		}
		return acc / (2 * n)
	}
}

func evaluateColumn(ctx context.Context, cache *objectiveCache, ids []VariationID, objective string) ([]float64, error) {
	values := make([]float64, len(ids))
	for i, id := range ids {
		v, err := cache.Value(ctx, id, objective)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (d *sobolDesign) auditRows() []AuditRow {
	rows := make([]AuditRow, 0, len(d.a)+len(d.b))
	for m, ids := range d.base.IDs {
		for r, id := range ids {
			rows = append(rows, AuditRow{Matrix: m, Row: r, CDFs: d.base.CDFs[m][r], IDs: id})
		}
	}
	for i, hybrid := range d.hybrids {
		for r, id := range hybrid {
			cdfs := append([]float64(nil), d.base.CDFs[0][r]...)
			cdfs[i] = d.base.CDFs[1][r][i]
			rows = append(rows, AuditRow{Matrix: 2 + i, Row: r, CDFs: cdfs, IDs: id})
		}
	}
	return rows
}
