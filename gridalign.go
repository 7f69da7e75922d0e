// Package gridalign aligns independently produced gridded Earth-observation
// datasets onto one shared pixel grid so they can be merged and compared
// pixel-for-pixel.
//
// The root package is a thin facade over pkg/align; most programs only need
// the Align convenience function:
//
//	out, err := gridalign.Align(ctx, datasets,
//	    gridalign.WithTarget("cci_biomass"),
//	    gridalign.WithResolution(100),
//	    gridalign.WithResampling(resample.Global{Method: resample.Average}),
//	)
//
// The returned dataset is lazy: reprojection work runs when it is
// materialized. Use an Aligner directly for repeated alignments with the same
// configuration.
package gridalign

import (
	"context"

	"github.com/atlaseo/gridalign/pkg/align"
	"github.com/atlaseo/gridalign/pkg/raster"
)

// Aligner resamples datasets onto one shared pixel grid.
type Aligner = align.Aligner

// Option configures an Aligner.
type Option = align.Option

// SnapMode controls resolution snapping against the reference grid.
type SnapMode = align.SnapMode

// Snapping modes.
const (
	SnapOff             = align.SnapOff
	SnapAuto            = align.SnapAuto
	SnapNearestMultiple = align.SnapNearestMultiple
)

// Aligner options.
var (
	WithTarget        = align.WithTarget
	WithCRS           = align.WithCRS
	WithResolution    = align.WithResolution
	WithResolutionXY  = align.WithResolutionXY
	WithResampling    = align.WithResampling
	WithSnap          = align.WithSnap
	WithSnapTolerance = align.WithSnapTolerance
	WithCoarsening    = align.WithCoarsening
	WithAxisNames     = align.WithAxisNames
	WithConcurrency   = align.WithConcurrency
)

// New creates an Aligner.
func New(opts ...Option) (*Aligner, error) {
	return align.New(opts...)
}

// Align creates a one-shot Aligner, runs it over the datasets, and
// materializes the result.
func Align(ctx context.Context, datasets map[string]*raster.Dataset, opts ...Option) (*raster.Dataset, error) {
	aligner, err := align.New(opts...)
	if err != nil {
		return nil, err
	}
	out, err := aligner.Align(ctx, datasets)
	if err != nil {
		return nil, err
	}
	if err := aligner.Materialize(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}
