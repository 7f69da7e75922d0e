package align

import (
	"context"
	"math"

	"github.com/atlaseo/gridalign/pkg/crs"
	"github.com/atlaseo/gridalign/pkg/grid"
	"github.com/atlaseo/gridalign/pkg/raster"
	"github.com/atlaseo/gridalign/pkg/resample"
)

// reprojector maps variables from one pixel grid onto another by inverse
// mapping: each target pixel is located in the source grid through the CRS
// transform and the inverted source affine, then filled by the resampling
// kernel. Target pixels falling outside the source grid become missing data,
// never zero.
type reprojector struct {
	src      grid.Spec
	dst      grid.Spec
	toSource crs.Transformer
	invSrc   grid.Transform
}

func newReprojector(src, dst grid.Spec) (*reprojector, error) {
	toSource, err := crs.NewTransformer(dst.CRS, src.CRS)
	if err != nil {
		return nil, err
	}
	invSrc, err := src.Transform.Invert()
	if err != nil {
		return nil, err
	}
	return &reprojector{src: src, dst: dst, toSource: toSource, invSrc: invSrc}, nil
}

// locate maps fractional target pixel coordinates to fractional source pixel
// coordinates.
func (rp *reprojector) locate(col, row float64) (fx, fy float64) {
	tx, ty := rp.dst.Transform.Apply(col, row)
	sx, sy := rp.toSource(tx, ty)
	return rp.invSrc.Apply(sx, sy)
}

// variable returns a lazily reprojected view of v. The variable's spatial
// axes must be its two trailing dimensions with sizes matching the source
// grid. Interpolating kernels sample at the target pixel center; reducer
// kernels aggregate the source pixels covered by the target pixel footprint.
func (rp *reprojector) variable(v *raster.Variable, method resample.Method) *raster.Variable {
	n := len(v.Dims)
	srcH, srcW := v.Shape[n-2], v.Shape[n-1]
	dstH, dstW := rp.dst.Height, rp.dst.Width

	outShape := append([]int(nil), v.Shape...)
	outShape[n-2], outShape[n-1] = dstH, dstW

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

		data := make([]float64, outer*dstH*dstW)
		for o := 0; o < outer; o++ {
			inPlane := in[o*srcH*srcW : (o+1)*srcH*srcW]
			outPlane := data[o*dstH*dstW : (o+1)*dstH*dstW]
			if method.IsReducer() {
				rp.reducePlane(inPlane, outPlane, srcH, srcW, method)
			} else {
				rp.samplePlane(inPlane, outPlane, srcH, srcW, method)
			}
		}
		return data, nil
	})
	out.Attrs = v.Attrs
	return out
}

// samplePlane fills one output plane with an interpolating kernel. The cubic
// and lanczos family kernels are currently evaluated with the bilinear
// kernel; nearest is exact.
func (rp *reprojector) samplePlane(in, out []float64, srcH, srcW int, method resample.Method) {
	nearest := method == resample.Nearest
	for r := 0; r < rp.dst.Height; r++ {
		for c := 0; c < rp.dst.Width; c++ {
			fx, fy := rp.locate(float64(c)+0.5, float64(r)+0.5)
			if nearest {
				out[r*rp.dst.Width+c] = pixelAt(in, srcH, srcW, int(math.Floor(fy)), int(math.Floor(fx)))
				continue
			}
			out[r*rp.dst.Width+c] = bilinear(in, srcH, srcW, fx, fy)
		}
	}
}

// reducePlane fills one output plane by aggregating the source pixels under
// each target pixel footprint.
func (rp *reprojector) reducePlane(in, out []float64, srcH, srcW int, method resample.Method) {
	const eps = 1e-9
	var block []float64

	for r := 0; r < rp.dst.Height; r++ {
		for c := 0; c < rp.dst.Width; c++ {
			minFX, minFY := math.Inf(1), math.Inf(1)
			maxFX, maxFY := math.Inf(-1), math.Inf(-1)
			for _, corner := range [4][2]float64{
				{float64(c), float64(r)},
				{float64(c + 1), float64(r)},
				{float64(c), float64(r + 1)},
				{float64(c + 1), float64(r + 1)},
			} {
				fx, fy := rp.locate(corner[0], corner[1])
				minFX, maxFX = math.Min(minFX, fx), math.Max(maxFX, fx)
				minFY, maxFY = math.Min(minFY, fy), math.Max(maxFY, fy)
			}

			c0, c1 := footprintRange(minFX, maxFX, srcW, eps)
			r0, r1 := footprintRange(minFY, maxFY, srcH, eps)
			if c0 >= c1 || r0 >= r1 {
				out[r*rp.dst.Width+c] = math.NaN()
				continue
			}

			block = block[:0]
			for sr := r0; sr < r1; sr++ {
				for sc := c0; sc < c1; sc++ {
					block = append(block, in[sr*srcW+sc])
				}
			}
			out[r*rp.dst.Width+c] = method.Reduce(block)
		}
	}
}

// footprintRange converts a fractional pixel interval to a clipped integer
// pixel range covering at least one pixel when the footprint is sub-pixel.
func footprintRange(lo, hi float64, size int, eps float64) (int, int) {
	i0 := int(math.Floor(lo + eps))
	i1 := int(math.Ceil(hi - eps))
	if i1 <= i0 {
		i1 = i0 + 1
	}
	if i0 < 0 {
		i0 = 0
	}
	if i1 > size {
		i1 = size
	}
	return i0, i1
}

// pixelAt reads a source pixel, returning NaN outside the grid.
func pixelAt(in []float64, h, w, row, col int) float64 {
	if row < 0 || row >= h || col < 0 || col >= w {
		return math.NaN()
	}
	return in[row*w+col]
}

// bilinear samples at fractional pixel coordinates in center space, skipping
// missing neighbors by renormalizing the remaining weights.
func bilinear(in []float64, h, w int, fx, fy float64) float64 {
	cx, cy := fx-0.5, fy-0.5
	x0, y0 := math.Floor(cx), math.Floor(cy)
	wx, wy := cx-x0, cy-y0

	var sum, wsum float64
	for _, n := range [4]struct {
		row, col int
		weight   float64
	}{
		{int(y0), int(x0), (1 - wy) * (1 - wx)},
		{int(y0), int(x0) + 1, (1 - wy) * wx},
		{int(y0) + 1, int(x0), wy * (1 - wx)},
		{int(y0) + 1, int(x0) + 1, wy * wx},
	} {
		if n.weight < 1e-12 {
			continue
		}
		v := pixelAt(in, h, w, n.row, n.col)
		if math.IsNaN(v) {
			continue
		}
		sum += v * n.weight
		wsum += n.weight
	}

	if wsum == 0 {
		return math.NaN()
	}
	return sum / wsum
}
