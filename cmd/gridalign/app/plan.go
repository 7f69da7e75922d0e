package app

import (
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/atlaseo/gridalign/pkg/align"
	"github.com/atlaseo/gridalign/pkg/coarsen"
	"github.com/atlaseo/gridalign/pkg/errors"
	"github.com/atlaseo/gridalign/pkg/resample"
)

// Plan is a declarative alignment configuration loaded from a YAML file. It
// carries everything an Aligner needs except the datasets themselves.
type Plan struct {
	// Target names the reference dataset whose grid becomes the target grid.
	Target string `yaml:"target"`

	// CRS optionally replaces the reference dataset's CRS.
	CRS string `yaml:"crs"`

	// Resolution sets a square target resolution in CRS units. ResolutionX
	// and ResolutionY set per-axis values and take precedence when both are
	// given.
	Resolution  float64 `yaml:"resolution"`
	ResolutionX float64 `yaml:"resolution_x"`
	ResolutionY float64 `yaml:"resolution_y"`

	// Snap selects the resolution snapping mode: off, auto, nearest_multiple.
	Snap          string  `yaml:"snap"`
	SnapTolerance float64 `yaml:"snap_tolerance"`

	// Coarsen configures integer-factor pre-downsampling.
	Coarsen *CoarsenPlan `yaml:"coarsen"`

	// Resampling is either a single method name or a per-dataset mapping,
	// matching resample.FromValue.
	Resampling any `yaml:"resampling"`
}

// CoarsenPlan configures pre-reprojection downsampling.
type CoarsenPlan struct {
	Factor  int               `yaml:"factor"`
	Default string            `yaml:"default"`
	Vars    map[string]string `yaml:"vars"`
}

// LoadPlan reads and decodes a plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewValidationError("plan", path, err.Error())
	}
	return ParsePlan(data)
}

// ParsePlan decodes a plan from YAML.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, errors.NewValidationError("plan", nil, err.Error())
	}
	return &plan, nil
}

// Options converts the plan into aligner options, validating every field.
func (p *Plan) Options() ([]align.Option, error) {
	var opts []align.Option

	if p.Target != "" {
		opts = append(opts, align.WithTarget(p.Target))
	}
	if p.CRS != "" {
		opts = append(opts, align.WithCRS(p.CRS))
	}

	switch {
	case p.ResolutionX > 0 || p.ResolutionY > 0:
		opts = append(opts, align.WithResolutionXY(p.ResolutionX, p.ResolutionY))
	case p.Resolution > 0:
		opts = append(opts, align.WithResolution(p.Resolution))
	}

	if p.Snap != "" {
		mode, err := align.ParseSnapMode(p.Snap)
		if err != nil {
			return nil, err
		}
		opts = append(opts, align.WithSnap(mode))
	}
	if p.SnapTolerance > 0 {
		opts = append(opts, align.WithSnapTolerance(p.SnapTolerance))
	}

	if p.Coarsen != nil && p.Coarsen.Factor > 1 {
		policy, err := p.Coarsen.policy()
		if err != nil {
			return nil, err
		}
		opts = append(opts, align.WithCoarsening(p.Coarsen.Factor, policy))
	}

	if p.Resampling != nil {
		spec, err := resample.FromValue(p.Resampling)
		if err != nil {
			return nil, err
		}
		opts = append(opts, align.WithResampling(spec))
	}

	return opts, nil
}

// Datasets returns the dataset names a per-dataset resampling mapping covers,
// sorted. A global method plan returns nil.
func (p *Plan) Datasets() []string {
	mapping, ok := p.Resampling.(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *CoarsenPlan) policy() (coarsen.Policy, error) {
	policy := coarsen.DefaultPolicy()
	if c.Default != "" {
		agg, err := coarsen.ParseAgg(c.Default)
		if err != nil {
			return coarsen.Policy{}, err
		}
		policy.Default = agg
	}
	if len(c.Vars) > 0 {
		policy.Vars = make(map[string]coarsen.AggMethod, len(c.Vars))
		for variable, name := range c.Vars {
			agg, err := coarsen.ParseAgg(name)
			if err != nil {
				return coarsen.Policy{}, err
			}
			policy.Vars[variable] = agg
		}
	}
	return policy, nil
}
