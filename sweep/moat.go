package sweep

import (
	"context"
	"fmt"
	"math/rand"
)

// MOAT is the Morris one-at-a-time screening method: one LHS base point per
// sample plus, per feature, one perturbation row moving only that feature's
// CDF coordinate by exactly 0.5 in whichever direction stays inside [0,1].
type MOAT struct {
	// NPoints is the number of base points.
	NPoints int
	// AddNoise and Orthogonalize configure the base LHS design.
	AddNoise      bool
	Orthogonalize bool
	// RNG drives the base design; required.
	RNG *rand.Rand
	// IgnoreIndices is not supported for MOAT: every feature costs exactly
	// one perturbation row, so there is nothing to save.
	IgnoreIndices []int
}

// Name implements GSAMethod.
func (MOAT) Name() string { return "moat" }

func (m MOAT) design(ctx context.Context, mat *Materializer, pv *ParsedVariations) (gsaDesign, error) {
	if len(m.IgnoreIndices) > 0 {
		return nil, fmt.Errorf("%w: ignore_indices is not supported for MOAT", ErrUnsupportedOption)
	}
	if m.NPoints < 1 {
		return nil, fmt.Errorf("%w: moat needs at least 1 base point", ErrValidation)
	}
	d := pv.NumDims()
	baseCDFs, err := GenerateLHSCDFs(m.RNG, m.NPoints, d, m.AddNoise, m.Orthogonalize)
	if err != nil {
		return nil, err
	}
	base, err := mat.rows(ctx, pv, baseCDFs)
	if err != nil {
		return nil, fmt.Errorf("base design: %w", err)
	}

	design := &moatDesign{
		baseCDFs:  baseCDFs,
		base:      base,
		perturbed: make([][]VariationID, d),
		delta:     make([][]float64, d),
	}
	row := make([]float64, d)
	for j := 0; j < d; j++ {
		design.perturbed[j] = make([]VariationID, m.NPoints)
		design.delta[j] = make([]float64, m.NPoints)
		for i := 0; i < m.NPoints; i++ {
			copy(row, baseCDFs[i])
			delta := moatStep(row[j])
			row[j] += delta
			id, err := mat.Row(ctx, pv, row)
			if err != nil {
				return nil, fmt.Errorf("perturbation of feature %d at point %d: %w", j, i, err)
			}
			design.perturbed[j][i] = id
			design.delta[j][i] = delta
		}
	}
	return design, nil
}

// moatStep picks the perturbation direction that keeps cdf+step in [0,1].
// At exactly 0.5 both directions stay in range; the tie is pinned downward so
// the choice never depends on floating-point noise elsewhere.
func moatStep(cdf float64) float64 {
	if cdf >= 0.5 {
		return -0.5
	}
	return 0.5
}

// MorrisStat holds the Morris screening statistics for one feature.
type MorrisStat struct {
	// Mean is the mean elementary effect (mu).
	Mean float64
	// MeanAbs is the mean absolute elementary effect (mu-star).
	MeanAbs float64
	// Variance is the variance of the elementary effects across base points.
	Variance float64
}

// MOATStats is the per-objective statistic bundle for MOAT.
type MOATStats struct {
	Features []MorrisStat
}

func (MOATStats) method() string { return "moat" }

type moatDesign struct {
	baseCDFs  [][]float64
	base      []VariationID
	perturbed [][]VariationID // [feature][point]
	delta     [][]float64     // [feature][point], signed steps
}

func (d *moatDesign) compute(ctx context.Context, cache *objectiveCache, objective string) (StatBundle, error) {
	nPoints := len(d.base)
	stats := MOATStats{Features: make([]MorrisStat, len(d.perturbed))}
	effects := make([]float64, nPoints)
	for j := range d.perturbed {
		for i := 0; i < nPoints; i++ {
			fBase, err := cache.Value(ctx, d.base[i], objective)
			if err != nil {
				return nil, err
			}
			fPert, err := cache.Value(ctx, d.perturbed[j][i], objective)
			if err != nil {
				return nil, err
			}
			// Elementary effect over the signed half-range step:
			// (f(perturbed) - f(base)) / delta = +-2 * df.
			effects[i] = (fPert - fBase) / d.delta[j][i]
		}
		stats.Features[j] = morrisStat(effects)
	}
	return stats, nil
}

func morrisStat(effects []float64) MorrisStat {
	n := float64(len(effects))
	var sum, sumAbs float64
	for _, e := range effects {
		sum += e
		if e < 0 {
			sumAbs -= e
		} else {
			sumAbs += e
		}
	}
	mean := sum / n
	var variance float64
	for _, e := range effects {
		variance += (e - mean) * (e - mean)
	}
	variance /= n
	return MorrisStat{Mean: mean, MeanAbs: sumAbs / n, Variance: variance}
}

func (d *moatDesign) auditRows() []AuditRow {
	rows := make([]AuditRow, 0, len(d.base)*(1+len(d.perturbed)))
	for i, id := range d.base {
		rows = append(rows, AuditRow{Row: i, CDFs: d.baseCDFs[i], IDs: id})
	}
	for j, col := range d.perturbed {
		for i, id := range col {
			cdfs := append([]float64(nil), d.baseCDFs[i]...)
			cdfs[j] += d.delta[j][i]
			rows = append(rows, AuditRow{Matrix: j + 1, Row: i, CDFs: cdfs, IDs: id})
		}
	}
	return rows
}
