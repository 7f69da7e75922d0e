package align

import (
	"fmt"
	"math"
	"sort"

	"github.com/atlaseo/gridalign/pkg/crs"
	"github.com/atlaseo/gridalign/pkg/errors"
	"github.com/atlaseo/gridalign/pkg/grid"
	"github.com/atlaseo/gridalign/pkg/raster"
)

// minGridSize floors the derived width/height to avoid degenerate grids.
const minGridSize = 2

// gridSizeEps absorbs float noise in the extent/resolution quotient so an
// extent that is mathematically an exact multiple of the pixel size never
// gains a phantom row or column.
const gridSizeEps = 1e-9

// resolveTargetGrid derives the authoritative grid specification all datasets
// are aligned onto. The reference dataset must carry both a resolvable CRS
// and an existing pixel grid; an explicit CRS replaces the reference CRS, and
// an explicit resolution rebuilds transform and shape over the same spatial
// extent, snapped against the reference resolution.
func (a *Aligner) resolveTargetGrid(datasets map[string]*raster.Dataset) (grid.Spec, error) {
	if a.opts.target == "" {
		// Explicit-grid-only mode (CRS and resolution without a reference
		// dataset) has no grid origin to anchor to and is not implemented.
		return grid.Spec{}, fmt.Errorf(
			"aligning without a reference dataset requires an explicit transform and shape: %w",
			errors.ErrNotImplemented)
	}

	ref, ok := datasets[a.opts.target]
	if !ok {
		return grid.Spec{}, fmt.Errorf("target dataset %q not found (available: %v): %w",
			a.opts.target, sortedKeys(datasets), errors.ErrNotFound)
	}
	if ref == nil {
		return grid.Spec{}, errors.NewTypeConformanceError(a.opts.target, "nil")
	}

	refCRS, err := crs.Resolve(ref, a.opts.target)
	if err != nil {
		return grid.Spec{}, err
	}

	xDim, yDim, err := inferSpatialDims(a.opts.target, ref)
	if err != nil {
		return grid.Spec{}, errors.NewGridExtractionError(a.opts.target,
			"no variable with recognizable horizontal axes", err)
	}

	xs, okX := ref.Coord(xDim)
	ys, okY := ref.Coord(yDim)
	if !okX || !okY {
		return grid.Spec{}, errors.NewGridExtractionError(a.opts.target,
			fmt.Sprintf("missing coordinate values for %q/%q", xDim, yDim), nil)
	}

	spec, err := grid.FromCoords(refCRS, xs, ys)
	if err != nil {
		return grid.Spec{}, errors.NewGridExtractionError(a.opts.target,
			"could not derive an affine transform from the coordinate arrays", err)
	}
	spec.XName, spec.YName = a.opts.xName, a.opts.yName

	// CRS override replaces the identifier only; the reference transform and
	// shape are assumed to already be expressed compatibly. Per-dataset
	// reprojection handles the actual coordinate conversion.
	if a.opts.crs != "" {
		spec.CRS = a.opts.crs
	}

	if a.opts.resX > 0 {
		spec = a.applyResolution(spec)
	}

	return spec, nil
}

// applyResolution rebuilds transform and shape for an explicit target
// resolution, preserving the reference grid's spatial extent and axis
// directions. Output pixel sizes are always positive magnitudes with the
// reference signs; width/height are floored at minGridSize.
func (a *Aligner) applyResolution(ref grid.Spec) grid.Spec {
	refRX, refRY := ref.Resolution()
	rx := snapResolution(a.opts.resX, refRX, a.opts.snapMode, a.opts.snapTolerance)
	ry := snapResolution(a.opts.resY, refRY, a.opts.snapMode, a.opts.snapTolerance)

	minX, minY, maxX, maxY := ref.Bounds()
	width := maxInt(minGridSize, int(math.Ceil((maxX-minX)/rx-gridSizeEps)))
	height := maxInt(minGridSize, int(math.Ceil((maxY-minY)/ry-gridSizeEps)))

	// keep the reference origin corner and axis directions
	dx := math.Copysign(rx, ref.Transform[0])
	dy := math.Copysign(ry, ref.Transform[4])
	originX := minX
	if dx < 0 {
		originX = maxX
	}
	originY := minY
	if dy < 0 {
		originY = maxY
	}

	out := grid.New(ref.CRS, grid.NewTransform(originX, originY, dx, dy), height, width)
	out.XName, out.YName = ref.XName, ref.YName
	return out
}

// snapResolution applies the snapping policy to one requested resolution
// against the reference resolution. Both inputs are positive magnitudes.
func snapResolution(requested, reference float64, mode SnapMode, tolerance float64) float64 {
	if mode == SnapOff || reference <= 0 {
		return requested
	}

	multiple := math.Round(requested / reference)
	if multiple < 1 {
		multiple = 1
	}
	snapped := multiple * reference

	switch mode {
	case SnapNearestMultiple:
		return snapped
	case SnapAuto:
		if math.Abs(snapped-requested) < tolerance*reference {
			return snapped
		}
	}
	return requested
}

// inferSpatialDims finds the horizontal axis names of a dataset by probing
// its variables in order; the first variable declaring both axes wins.
func inferSpatialDims(name string, ds *raster.Dataset) (xDim, yDim string, err error) {
	var lastErr error
	for _, varName := range ds.VarNames() {
		if isGridMappingVar(varName) {
			continue
		}
		v, _ := ds.Var(varName)

		x, xErr := raster.InferXDim(name, varName, v)
		if xErr != nil {
			lastErr = xErr
			continue
		}
		y, yErr := raster.InferYDim(name, varName, v)
		if yErr != nil {
			lastErr = yErr
			continue
		}
		return x, y, nil
	}
	if lastErr == nil {
		lastErr = errors.NewDimensionInferenceError(name, "", "x", raster.XCandidates)
	}
	return "", "", lastErr
}

// isGridMappingVar reports whether a variable name is one of the CF
// grid-mapping carriers, which hold CRS metadata rather than pixel data.
func isGridMappingVar(name string) bool {
	return name == "spatial_ref" || name == "crs"
}

func sortedKeys(m map[string]*raster.Dataset) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
