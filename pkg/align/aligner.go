// Package align orchestrates the alignment of multiple gridded datasets onto
// one shared pixel grid. Each input runs through a fixed per-dataset
// pipeline — validate, normalize CRS, standardize dimensions, optionally
// coarsen, reproject, canonicalize axis names, attach CRS — and the aligned
// results are combined with an exact-match merge. No step retries and nothing
// is auto-corrected: every failure surfaces immediately as a typed error
// naming the offending dataset or variable.
package align

import (
	"context"
	"fmt"

	"github.com/atlaseo/gridalign/pkg/coarsen"
	"github.com/atlaseo/gridalign/pkg/crs"
	"github.com/atlaseo/gridalign/pkg/errors"
	"github.com/atlaseo/gridalign/pkg/grid"
	"github.com/atlaseo/gridalign/pkg/logging"
	"github.com/atlaseo/gridalign/pkg/raster"
	"github.com/atlaseo/gridalign/pkg/resample"
)

// Aligner resamples independently produced gridded datasets onto one shared
// pixel grid so they can be merged and compared pixel-for-pixel. An Aligner
// is immutable after construction and safe for concurrent use over disjoint
// inputs; it keeps no state between calls, and every Align call resolves its
// own target grid from explicit inputs.
type Aligner struct {
	opts *options
}

// New creates an Aligner. Either WithTarget or WithCRS is required; all
// options are validated eagerly.
func New(opts ...Option) (*Aligner, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Aligner{opts: o}, nil
}

// TargetGrid resolves the grid every dataset would be aligned onto, for
// diagnostics. The same derivation runs inside Align; for a fixed reference
// dataset and configuration the result is bit-identical across calls.
func (a *Aligner) TargetGrid(datasets map[string]*raster.Dataset) (grid.Spec, error) {
	return a.resolveTargetGrid(datasets)
}

// Align runs the per-dataset pipeline over every input and merges the
// results. Inputs are never mutated; the returned dataset is lazy and
// executes its reprojections when materialized. Alignment is all-or-nothing:
// on any error no partial result is returned.
func (a *Aligner) Align(ctx context.Context, datasets map[string]*raster.Dataset) (*raster.Dataset, error) {
	if len(datasets) == 0 {
		return nil, errors.NewValidationError("datasets", nil, "no datasets provided for alignment")
	}

	target, err := a.resolveTargetGrid(datasets)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().
		Str("grid", target.String()).
		Int("datasets", len(datasets)).
		Msg("Resolved target grid")

	entries := make([]raster.NamedDataset, 0, len(datasets))
	for _, name := range sortedKeys(datasets) {
		aligned, err := a.alignOne(ctx, name, datasets[name], target)
		if err != nil {
			return nil, err
		}
		entries = append(entries, raster.NamedDataset{Name: name, Dataset: aligned})
	}

	merged, err := raster.Merge(entries)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Debug().
		Int("variables", merged.NumVars()).
		Msg("Merged aligned datasets")
	return merged, nil
}

// Materialize forces a dataset returned by Align with the aligner's
// configured concurrency. This is the explicit boundary where the deferred
// coarsening and reprojection work executes.
func (a *Aligner) Materialize(ctx context.Context, ds *raster.Dataset) error {
	return ds.Materialize(ctx, a.opts.concurrency)
}

// alignOne runs the pipeline states for a single dataset.
func (a *Aligner) alignOne(ctx context.Context, name string, ds *raster.Dataset, target grid.Spec) (*raster.Dataset, error) {
	ctx = logging.WithDataset(ctx, name)
	logger := logging.Ctx(ctx)

	// Validate
	if ds == nil {
		return nil, errors.NewTypeConformanceError(name, "nil")
	}

	policy, err := a.opts.resampling.Resolve(name)
	if err != nil {
		return nil, err
	}
	for variable := range policy.Overrides {
		if _, ok := ds.Var(variable); !ok {
			return nil, errors.NewResamplingSpecError(name, variable, "",
				"override names a variable not present in the dataset")
		}
	}

	// Normalize CRS
	sourceCRS, err := crs.Resolve(ds, name)
	if err != nil {
		return nil, err
	}
	work := ds.Copy()
	if _, ok := work.CRS(); !ok {
		work.SetCRS(sourceCRS)
	}

	// Standardize dimensions
	xDim, yDim, err := inferSpatialDims(name, work)
	if err != nil {
		return nil, err
	}
	std := raster.NewDataset()
	for _, varName := range work.VarNames() {
		if isGridMappingVar(varName) {
			// CRS carrier, not pixel data; the target CRS is re-attached as
			// an attribute below.
			continue
		}
		v, _ := work.Var(varName)
		vx, err := raster.InferXDim(name, varName, v)
		if err != nil {
			return nil, err
		}
		vy, err := raster.InferYDim(name, varName, v)
		if err != nil {
			return nil, err
		}
		ordered, err := v.Transpose(raster.CanonicalOrder(v, vx, vy)...)
		if err != nil {
			return nil, err
		}
		std.SetVar(varName, ordered)
	}
	for dim, coord := range work.Coords {
		std.Coords[dim] = append([]float64(nil), coord...)
	}
	for k, v := range work.Attrs {
		std.Attrs[k] = v
	}

	// Coarsen (strictly before reprojection)
	if a.opts.coarsenFactor > 1 {
		logger.Debug().Int("factor", a.opts.coarsenFactor).Msg("Coarsening before reprojection")
		std, err = coarsen.Coarsen(std, xDim, yDim, a.opts.coarsenFactor, a.opts.coarsenPolicy)
		if err != nil {
			return nil, err
		}
	}

	// Reproject
	xs, okX := std.Coord(xDim)
	ys, okY := std.Coord(yDim)
	if !okX || !okY {
		return nil, errors.NewGridExtractionError(name,
			fmt.Sprintf("missing coordinate values for %q/%q", xDim, yDim), nil)
	}
	sourceGrid, err := grid.FromCoords(sourceCRS, xs, ys)
	if err != nil {
		return nil, errors.NewGridExtractionError(name,
			"could not derive an affine transform from the coordinate arrays", err)
	}

	rp, err := newReprojector(sourceGrid, target)
	if err != nil {
		if crsErr, ok := errors.AsCRSResolution(err); ok && crsErr.Dataset == "" {
			crsErr.Dataset = name
		}
		return nil, err
	}

	out := raster.NewDataset()
	for _, varName := range std.VarNames() {
		v, _ := std.Var(varName)
		method := policy.Method(varName)
		logger.Debug().
			Str("variable", varName).
			Str("method", string(method)).
			Msg("Reprojecting variable")
		out.SetVar(varName, rp.variable(v, method))
	}
	for dim, coord := range std.Coords {
		if dim == xDim || dim == yDim {
			continue
		}
		out.Coords[dim] = coord
	}
	out.SetCoord(xDim, target.XCoords())
	out.SetCoord(yDim, target.YCoords())
	for k, v := range std.Attrs {
		out.Attrs[k] = v
	}

	// Canonicalize names
	out = out.RenameDims(map[string]string{xDim: a.opts.xName, yDim: a.opts.yName})

	// Attach CRS
	delete(out.Attrs, raster.AttrSpatialRef)
	out.SetCRS(target.CRS)

	return out, nil
}

// ResolvePolicy exposes per-dataset resampling resolution for diagnostics
// (and the plan command); it performs the same validation as Align.
func (a *Aligner) ResolvePolicy(dataset string) (resample.Policy, error) {
	return a.opts.resampling.Resolve(dataset)
}
