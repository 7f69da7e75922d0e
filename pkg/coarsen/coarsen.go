// Package coarsen implements optional integer-factor pre-downsampling with
// variable-aware aggregation. Coarsening before reprojection cuts the
// reprojection workload roughly by factor squared while the final resampling
// step still performs the geometric correction; it must run strictly before
// reprojection, never after.
package coarsen

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/atlaseo/gridalign/pkg/errors"
	"github.com/atlaseo/gridalign/pkg/raster"
	"github.com/atlaseo/gridalign/pkg/resample"
)

// AggMethod names a block aggregation method.
type AggMethod string

// The fixed set of aggregation methods.
const (
	First  AggMethod = "first"
	Min    AggMethod = "min"
	Max    AggMethod = "max"
	Mean   AggMethod = "mean"
	Median AggMethod = "median"
	Mode   AggMethod = "mode"
	Sum    AggMethod = "sum"

	// Auto selects First for integer-typed variables (preserving categorical
	// codes) and Mean for floating-point variables (preserving continuous
	// magnitude).
	Auto AggMethod = "auto"
)

// Methods lists every explicit aggregation method (excluding Auto).
var Methods = []AggMethod{First, Min, Max, Mean, Median, Mode, Sum}

// ParseAgg validates an aggregation method name, Auto included.
func ParseAgg(name string) (AggMethod, error) {
	a := AggMethod(strings.ToLower(strings.TrimSpace(name)))
	if a == Auto {
		return a, nil
	}
	for _, m := range Methods {
		if a == m {
			return a, nil
		}
	}
	return "", errors.NewValidationError("agg", name, "unknown aggregation method")
}

// Policy selects the aggregation method per variable: explicit per-variable
// overrides take precedence over the default, and an Auto default defers to
// the variable's dtype.
type Policy struct {
	Default AggMethod
	Vars    map[string]AggMethod
}

// DefaultPolicy aggregates by dtype.
func DefaultPolicy() Policy {
	return Policy{Default: Auto}
}

// resolve picks the concrete method for one variable.
func (p Policy) resolve(variable string, dtype raster.DType) AggMethod {
	if m, ok := p.Vars[variable]; ok && m != Auto {
		return m
	}
	if p.Default != Auto && p.Default != "" {
		return p.Default
	}
	if dtype.IsInteger() {
		return First
	}
	return Mean
}

// reduce aggregates one block. Mode needs an exact per-block tally because no
// generic numeric reducer computes it correctly; it and the other reducers
// skip missing values. First returns the first non-missing value in scan
// order.
func (a AggMethod) reduce(vals []float64) float64 {
	switch a {
	case First:
		for _, v := range vals {
			if !math.IsNaN(v) {
				return v
			}
		}
		return math.NaN()
	case Min:
		return resample.Min.Reduce(vals)
	case Max:
		return resample.Max.Reduce(vals)
	case Mean:
		return resample.Average.Reduce(vals)
	case Median:
		return resample.Med.Reduce(vals)
	case Mode:
		return resample.Mode.Reduce(vals)
	case Sum:
		return resample.Sum.Reduce(vals)
	}
	return math.NaN()
}

// Coarsen groups the spatial axes of every variable into factor x factor
// blocks and reduces each block per the resolved aggregation method.
// Incomplete edge blocks are padded virtually: the reduction sees only the
// in-range values, so a (101, 101) grid at factor 4 becomes (26, 26).
// A factor <= 1 is a no-op returning the input unchanged.
//
// The spatial axes must be the two trailing dimensions of each spatial
// variable (the orchestrator standardizes dimension order first).
func Coarsen(ds *raster.Dataset, xDim, yDim string, factor int, policy Policy) (*raster.Dataset, error) {
	if factor <= 1 {
		return ds, nil
	}

	out := raster.NewDataset()
	for _, name := range ds.VarNames() {
		v, _ := ds.Var(name)
		if !v.HasDim(xDim) || !v.HasDim(yDim) {
			out.SetVar(name, v.Copy())
			continue
		}

		n := len(v.Dims)
		if n < 2 || !isTrailingPair(v.Dims, xDim, yDim) {
			return nil, errors.NewValidationError("dims", v.Dims,
				fmt.Sprintf("variable %q must have %q/%q as trailing dimensions before coarsening", name, yDim, xDim))
		}

		out.SetVar(name, coarsenVariable(v, factor, policy.resolve(name, v.DType)))
	}

	for dim, coord := range ds.Coords {
		if dim == xDim || dim == yDim {
			out.Coords[dim] = coarsenCoord(coord, factor)
			continue
		}
		out.Coords[dim] = append([]float64(nil), coord...)
	}
	for k, v := range ds.Attrs {
		out.Attrs[k] = v
	}
	return out, nil
}

func isTrailingPair(dims []string, xDim, yDim string) bool {
	n := len(dims)
	a, b := dims[n-2], dims[n-1]
	return (a == yDim && b == xDim) || (a == xDim && b == yDim)
}

// outSize is the coarsened length of an axis: ceil(n / factor).
func outSize(n, factor int) int {
	return (n + factor - 1) / factor
}

// coarsenVariable builds a lazily reduced view of one spatial variable.
func coarsenVariable(v *raster.Variable, factor int, agg AggMethod) *raster.Variable {
	n := len(v.Dims)
	height, width := v.Shape[n-2], v.Shape[n-1]
	outH, outW := outSize(height, factor), outSize(width, factor)

	outShape := append([]int(nil), v.Shape...)
	outShape[n-2], outShape[n-1] = outH, outW

	outer := 1
	for _, s := range v.Shape[:n-2] {
		outer *= s
	}

	src := v
	out := raster.Deferred(v.Dims, outShape, v.DType, func(ctx context.Context) ([]float64, error) {
		in, err := src.Values(ctx)
		if err != nil {
			return nil, err
		}

		data := make([]float64, outer*outH*outW)
		block := make([]float64, 0, factor*factor)

		for o := 0; o < outer; o++ {
			inPlane := in[o*height*width:]
			outPlane := data[o*outH*outW:]
			for by := 0; by < outH; by++ {
				rowEnd := minInt((by+1)*factor, height)
				for bx := 0; bx < outW; bx++ {
					colEnd := minInt((bx+1)*factor, width)
					block = block[:0]
					for r := by * factor; r < rowEnd; r++ {
						for c := bx * factor; c < colEnd; c++ {
							block = append(block, inPlane[r*width+c])
						}
					}
					outPlane[by*outW+bx] = agg.reduce(block)
				}
			}
		}
		return data, nil
	})
	out.Attrs = attrsCopy(v.Attrs)
	return out
}

// coarsenCoord reduces a coordinate array by block mean, yielding the new
// pixel-center positions.
func coarsenCoord(coord []float64, factor int) []float64 {
	out := make([]float64, outSize(len(coord), factor))
	for b := range out {
		end := minInt((b+1)*factor, len(coord))
		sum := 0.0
		for i := b * factor; i < end; i++ {
			sum += coord[i]
		}
		out[b] = sum / float64(end-b*factor)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func attrsCopy(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
