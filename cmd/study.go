package cmd

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"

	"github.com/variant-sim/variant-sim/sweep"
)

// StudyBundle holds a full sensitivity study, loadable from a YAML file:
// reference rows, the varied parameters, the GSA method, and the objectives.
// Nil pointer fields mean "not set in YAML".
type StudyBundle struct {
	Seed          int64                       `yaml:"seed"`
	Replicates    int                         `yaml:"replicates"`
	FailurePolicy string                      `yaml:"failure_policy"`
	Reference     map[string]map[string]any   `yaml:"reference"`
	Variations    []VariationSpec             `yaml:"variations"`
	Method        MethodSpec                  `yaml:"method"`
	Objectives    []string                    `yaml:"objectives"`
}

// VariationSpec describes one sampled dimension: a single varied parameter,
// or a covary group sharing one coordinate.
type VariationSpec struct {
	ElementSpec `yaml:",inline"`
	Covary      []ElementSpec `yaml:"covary"`
}

// ElementSpec describes one varied parameter.
type ElementSpec struct {
	Location     string            `yaml:"location"`
	Target       []string          `yaml:"target"`
	Values       []any             `yaml:"values"`
	Distribution *DistributionSpec `yaml:"distribution"`
	Flip         bool              `yaml:"flip"`
}

// DistributionSpec selects a continuous distribution by name.
type DistributionSpec struct {
	Type  string   `yaml:"type"`
	Min   *float64 `yaml:"min"`
	Max   *float64 `yaml:"max"`
	Mu    *float64 `yaml:"mu"`
	Sigma *float64 `yaml:"sigma"`
}

// MethodSpec selects and parameterizes the GSA method.
type MethodSpec struct {
	GSA           string `yaml:"gsa"`
	N             int    `yaml:"n"`
	AddNoise      bool   `yaml:"add_noise"`
	Orthogonalize bool   `yaml:"orthogonalize"`
	UseSobol      bool   `yaml:"use_sobol"`
	NumHarmonics  int    `yaml:"num_harmonics"`
	FirstOrder    string `yaml:"first_order"`
	TotalOrder    string `yaml:"total_order"`
	Randomization string `yaml:"randomization"`
	SkipStart     *bool  `yaml:"skip_start"`
	IncludeOne    *bool  `yaml:"include_one"`
	IgnoreIndices []int  `yaml:"ignore_indices"`
}

// ValidGSAMethods is the set of recognized method names.
var ValidGSAMethods = map[string]bool{"moat": true, "sobol": true, "rbd": true}

// ValidFailurePolicies is the set of recognized replicate failure policies.
var ValidFailurePolicies = map[string]bool{"": true, "fail-fast": true, "exclude-failed": true}

// LoadStudyBundle reads and parses a YAML study file.
func LoadStudyBundle(path string) (*StudyBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading study config: %w", err)
	}
	var bundle StudyBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing study config: %w", err)
	}
	return &bundle, nil
}

// Validate checks the bundle before any variation is built.
func (b *StudyBundle) Validate() error {
	if !ValidGSAMethods[b.Method.GSA] {
		return fmt.Errorf("unknown gsa method %q", b.Method.GSA)
	}
	if !ValidFailurePolicies[b.FailurePolicy] {
		return fmt.Errorf("unknown failure policy %q", b.FailurePolicy)
	}
	if b.Method.N < 1 {
		return fmt.Errorf("method n must be >= 1, got %d", b.Method.N)
	}
	if len(b.Variations) == 0 {
		return fmt.Errorf("study has no variations")
	}
	if len(b.Objectives) == 0 {
		return fmt.Errorf("study has no objectives")
	}
	return nil
}

// BuildVariations turns the bundle's variation specs into domain variations.
func (b *StudyBundle) BuildVariations() ([]sweep.Variation, error) {
	variations := make([]sweep.Variation, 0, len(b.Variations))
	for i, spec := range b.Variations {
		if len(spec.Covary) > 0 {
			elements := make([]sweep.ElementaryVariation, 0, len(spec.Covary))
			for _, el := range spec.Covary {
				built, err := buildElement(el)
				if err != nil {
					return nil, fmt.Errorf("variation %d: %w", i, err)
				}
				elements = append(elements, built)
			}
			cv, err := sweep.NewCoVariation(elements...)
			if err != nil {
				return nil, fmt.Errorf("variation %d: %w", i, err)
			}
			variations = append(variations, cv)
			continue
		}
		built, err := buildElement(spec.ElementSpec)
		if err != nil {
			return nil, fmt.Errorf("variation %d: %w", i, err)
		}
		variations = append(variations, built)
	}
	return variations, nil
}

func buildElement(spec ElementSpec) (sweep.ElementaryVariation, error) {
	loc := sweep.Location(spec.Location)
	target := sweep.TargetPath(spec.Target)
	if len(spec.Values) > 0 {
		if spec.Distribution != nil {
			return nil, fmt.Errorf("%s: values and distribution are mutually exclusive", target.ColumnName())
		}
		return sweep.NewDiscreteVariation(loc, target, spec.Values)
	}
	if spec.Distribution == nil {
		return nil, fmt.Errorf("%s: needs either values or a distribution", target.ColumnName())
	}
	dist, err := buildDistribution(*spec.Distribution)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", target.ColumnName(), err)
	}
	return sweep.NewDistributedVariation(loc, target, dist, spec.Flip)
}

func buildDistribution(spec DistributionSpec) (sweep.Distribution, error) {
	switch spec.Type {
	case "uniform":
		if spec.Min == nil || spec.Max == nil {
			return nil, fmt.Errorf("uniform distribution needs min and max")
		}
		return distuv.Uniform{Min: *spec.Min, Max: *spec.Max}, nil
	case "normal":
		if spec.Mu == nil || spec.Sigma == nil {
			return nil, fmt.Errorf("normal distribution needs mu and sigma")
		}
		return distuv.Normal{Mu: *spec.Mu, Sigma: *spec.Sigma}, nil
	case "lognormal":
		if spec.Mu == nil || spec.Sigma == nil {
			return nil, fmt.Errorf("lognormal distribution needs mu and sigma")
		}
		return distuv.LogNormal{Mu: *spec.Mu, Sigma: *spec.Sigma}, nil
	default:
		return nil, fmt.Errorf("unknown distribution type %q", spec.Type)
	}
}

// BuildMethod turns the bundle's method spec into a GSA method, wiring the
// explicit RNG handles.
func (b *StudyBundle) BuildMethod(rng *sweep.PartitionedRNG) (sweep.GSAMethod, error) {
	sampling := rng.ForSubsystem(sweep.SubsystemSampling)
	switch b.Method.GSA {
	case "moat":
		return sweep.MOAT{
			NPoints:       b.Method.N,
			AddNoise:      b.Method.AddNoise,
			Orthogonalize: b.Method.Orthogonalize,
			RNG:           sampling,
			IgnoreIndices: b.Method.IgnoreIndices,
		}, nil
	case "sobol":
		return sweep.Sobol{
			N:             b.Method.N,
			FirstOrder:    sweep.FirstOrderEstimator(b.Method.FirstOrder),
			TotalOrder:    sweep.TotalOrderEstimator(b.Method.TotalOrder),
			IgnoreIndices: b.Method.IgnoreIndices,
			Options: sweep.SobolOptions{
				Randomization: sweep.Randomization(b.Method.Randomization),
				SkipStart:     b.Method.SkipStart,
				IncludeOne:    b.Method.IncludeOne,
				RNG:           rng.ForSubsystem(sweep.SubsystemShift),
			},
		}, nil
	case "rbd":
		return sweep.RBD{
			N:             b.Method.N,
			UseSobol:      b.Method.UseSobol,
			NumHarmonics:  b.Method.NumHarmonics,
			RNG:           sampling,
			IgnoreIndices: b.Method.IgnoreIndices,
		}, nil
	default:
		return nil, fmt.Errorf("unknown gsa method %q", b.Method.GSA)
	}
}

// FailurePolicyValue maps the bundle's policy name to the domain enum.
func (b *StudyBundle) FailurePolicyValue() sweep.FailurePolicy {
	if b.FailurePolicy == "exclude-failed" {
		return sweep.ExcludeFailed
	}
	return sweep.FailFast
}
