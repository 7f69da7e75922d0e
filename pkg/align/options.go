package align

import (
	"strings"

	"github.com/atlaseo/gridalign/pkg/coarsen"
	"github.com/atlaseo/gridalign/pkg/errors"
	"github.com/atlaseo/gridalign/pkg/grid"
	"github.com/atlaseo/gridalign/pkg/lazy"
	"github.com/atlaseo/gridalign/pkg/resample"
)

// SnapMode controls how an explicit target resolution is snapped against the
// reference grid's resolution. Snapping prevents sub-pixel misalignment
// artifacts when a caller requests "almost the same" resolution as the
// source grid.
type SnapMode string

// Snapping modes.
const (
	// SnapOff leaves the requested resolution untouched.
	SnapOff SnapMode = "off"
	// SnapAuto snaps only when the requested and snapped resolutions differ
	// by less than the configured relative tolerance.
	SnapAuto SnapMode = "auto"
	// SnapNearestMultiple always rounds the requested resolution to the
	// nearest integer multiple of the reference resolution.
	SnapNearestMultiple SnapMode = "nearest_multiple"
)

// ParseSnapMode validates a snap mode name.
func ParseSnapMode(name string) (SnapMode, error) {
	switch m := SnapMode(strings.ToLower(strings.TrimSpace(name))); m {
	case SnapOff, SnapAuto, SnapNearestMultiple:
		return m, nil
	default:
		return "", errors.NewValidationError("snap", name, "unknown snapping mode")
	}
}

// DefaultSnapTolerance is the relative tolerance used by SnapAuto.
const DefaultSnapTolerance = 0.01

// options configures an Aligner.
type options struct {
	target        string
	crs           string
	resX, resY    float64 // 0 means no resolution override
	resampling    resample.Spec
	snapMode      SnapMode
	snapTolerance float64
	coarsenFactor int
	coarsenPolicy coarsen.Policy
	xName, yName  string
	concurrency   int
}

func defaultOptions() *options {
	return &options{
		resampling:    resample.Global{Method: resample.Nearest},
		snapMode:      SnapAuto,
		snapTolerance: DefaultSnapTolerance,
		coarsenPolicy: coarsen.DefaultPolicy(),
		xName:         grid.DefaultXName,
		yName:         grid.DefaultYName,
		concurrency:   lazy.DefaultConcurrency,
	}
}

// Option is a function that configures an Aligner.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns aligner options with defaults applied, then validated.
func newOptions(opts ...Option) (*options, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.target == "" && o.crs == "" {
		return nil, errors.NewValidationError("target", nil,
			"either a target dataset or an explicit CRS must be provided")
	}
	return o, nil
}

// WithTarget names the reference dataset whose grid becomes the target grid.
func WithTarget(name string) Option {
	return func(o *options) error {
		if name == "" {
			return errors.NewValidationError("target", name, "cannot be empty")
		}
		o.target = name
		return nil
	}
}

// WithCRS sets an explicit target CRS (e.g. "EPSG:3035"), replacing the
// reference dataset's CRS.
func WithCRS(crs string) Option {
	return func(o *options) error {
		if crs == "" {
			return errors.NewValidationError("crs", crs, "cannot be empty")
		}
		o.crs = crs
		return nil
	}
}

// WithResolution sets a square explicit target resolution in CRS units.
func WithResolution(res float64) Option {
	return WithResolutionXY(res, res)
}

// WithResolutionXY sets separate x/y target resolutions in CRS units.
func WithResolutionXY(resX, resY float64) Option {
	return func(o *options) error {
		if resX <= 0 || resY <= 0 {
			return errors.NewValidationError("resolution", []float64{resX, resY}, "must be positive")
		}
		o.resX, o.resY = resX, resY
		return nil
	}
}

// WithResampling sets the resampling specification, global or per-dataset.
func WithResampling(spec resample.Spec) Option {
	return func(o *options) error {
		if spec == nil {
			return errors.NewValidationError("resampling", nil, "cannot be nil")
		}
		o.resampling = spec
		return nil
	}
}

// WithSnap sets the resolution snapping mode.
func WithSnap(mode SnapMode) Option {
	return func(o *options) error {
		if _, err := ParseSnapMode(string(mode)); err != nil {
			return err
		}
		o.snapMode = mode
		return nil
	}
}

// WithSnapTolerance sets the relative tolerance used by SnapAuto.
func WithSnapTolerance(tol float64) Option {
	return func(o *options) error {
		if tol <= 0 {
			return errors.NewValidationError("snap_tolerance", tol, "must be positive")
		}
		o.snapTolerance = tol
		return nil
	}
}

// WithCoarsening enables integer-factor pre-downsampling before
// reprojection. A factor <= 1 disables it.
func WithCoarsening(factor int, policy coarsen.Policy) Option {
	return func(o *options) error {
		if factor < 0 {
			return errors.NewValidationError("coarsen_factor", factor, "cannot be negative")
		}
		o.coarsenFactor = factor
		o.coarsenPolicy = policy
		return nil
	}
}

// WithAxisNames overrides the canonical output axis names.
func WithAxisNames(xName, yName string) Option {
	return func(o *options) error {
		if xName == "" || yName == "" || xName == yName {
			return errors.NewValidationError("axis_names", []string{xName, yName},
				"must be two distinct non-empty names")
		}
		o.xName, o.yName = xName, yName
		return nil
	}
}

// WithConcurrency bounds parallel buffer materialization inside the engine.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.NewValidationError("concurrency", n, "must be positive")
		}
		o.concurrency = n
		return nil
	}
}
