// Package grid defines the immutable target pixel grid description shared by
// every reprojection step: a CRS identifier, a 6-parameter affine transform,
// and the raster shape. A Spec is derived once per alignment call and is
// read-only thereafter.
package grid

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/atlaseo/gridalign/pkg/errors"
)

// Canonical output axis names, applied to every aligned dataset regardless of
// source naming.
const (
	DefaultXName = "longitude"
	DefaultYName = "latitude"
)

// Transform is a 6-parameter affine mapping pixel indices to CRS coordinates:
//
//	x = a*col + b*row + c
//	y = d*col + e*row + f
//
// stored as [a, b, c, d, e, f]. Pixel (0, 0) is the top-left corner; pixel
// centers sit at half-integer offsets.
type Transform [6]float64

// NewTransform builds an axis-aligned transform from an origin (top-left
// corner) and signed pixel sizes.
func NewTransform(originX, originY, pixelWidth, pixelHeight float64) Transform {
	return Transform{pixelWidth, 0, originX, 0, pixelHeight, originY}
}

// Apply maps fractional pixel coordinates to CRS coordinates.
func (t Transform) Apply(col, row float64) (x, y float64) {
	x = t[0]*col + t[1]*row + t[2]
	y = t[3]*col + t[4]*row + t[5]
	return x, y
}

// Invert returns the transform mapping CRS coordinates back to fractional
// pixel coordinates. Fails for degenerate (zero determinant) transforms.
func (t Transform) Invert() (Transform, error) {
	det := t[0]*t[4] - t[1]*t[3]
	if det == 0 {
		return Transform{}, errors.NewValidationError("transform", t, "affine transform is not invertible")
	}
	return Transform{
		t[4] / det, -t[1] / det, (t[1]*t[5] - t[4]*t[2]) / det,
		-t[3] / det, t[0] / det, (t[3]*t[2] - t[0]*t[5]) / det,
	}, nil
}

// Spec is the immutable description of a target pixel grid. Shape and
// transform together fully determine the pixel footprint; two specs differing
// in transform, shape, or CRS are never interchangeable.
type Spec struct {
	CRS       string
	Transform Transform
	Height    int
	Width     int
	XName     string
	YName     string
}

// New creates a Spec with canonical axis-name defaults.
func New(crs string, transform Transform, height, width int) Spec {
	return Spec{
		CRS:       crs,
		Transform: transform,
		Height:    height,
		Width:     width,
		XName:     DefaultXName,
		YName:     DefaultYName,
	}
}

// Equal reports component-wise equality.
func (s Spec) Equal(other Spec) bool {
	return s.CRS == other.CRS &&
		s.Transform == other.Transform &&
		s.Height == other.Height &&
		s.Width == other.Width
}

// Resolution returns the absolute pixel sizes (x, y).
func (s Spec) Resolution() (float64, float64) {
	rx := math.Hypot(s.Transform[0], s.Transform[3])
	ry := math.Hypot(s.Transform[1], s.Transform[4])
	return rx, ry
}

// Bounds returns the spatial extent (minX, minY, maxX, maxY) covered by the
// grid footprint.
func (s Spec) Bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, corner := range [][2]float64{
		{0, 0},
		{float64(s.Width), 0},
		{0, float64(s.Height)},
		{float64(s.Width), float64(s.Height)},
	} {
		x, y := s.Transform.Apply(corner[0], corner[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return minX, minY, maxX, maxY
}

// XCoords returns the x coordinate of every pixel center along the top row.
func (s Spec) XCoords() []float64 {
	coords := make([]float64, s.Width)
	for c := range coords {
		x, _ := s.Transform.Apply(float64(c)+0.5, 0.5)
		coords[c] = x
	}
	return coords
}

// YCoords returns the y coordinate of every pixel center along the left
// column.
func (s Spec) YCoords() []float64 {
	coords := make([]float64, s.Height)
	for r := range coords {
		_, y := s.Transform.Apply(0.5, float64(r)+0.5)
		coords[r] = y
	}
	return coords
}

// Hash returns a deterministic digest over the rounded transform components,
// shape, and CRS, for caching and diagnostics. Components are rounded to nine
// decimal places so that bit-level float noise does not split cache entries.
func (s Spec) Hash() uint64 {
	h := xxhash.New()
	for _, c := range s.Transform {
		fmt.Fprintf(h, "%.9f|", c)
	}
	fmt.Fprintf(h, "%dx%d|%s", s.Height, s.Width, s.CRS)
	return h.Sum64()
}

// String implements fmt.Stringer for diagnostics.
func (s Spec) String() string {
	rx, ry := s.Resolution()
	return fmt.Sprintf("grid(%s %dx%d res %g,%g hash %016x)", s.CRS, s.Height, s.Width, rx, ry, s.Hash())
}

// FromCoords derives a Spec from evenly spaced pixel-center coordinates, the
// way a grid is recovered from a dataset's x/y coordinate arrays. Both arrays
// need at least two points, and spacing must be uniform to within a relative
// tolerance of 1e-6.
func FromCoords(crs string, xs, ys []float64) (Spec, error) {
	dx, err := uniformSpacing("x", xs)
	if err != nil {
		return Spec{}, err
	}
	dy, err := uniformSpacing("y", ys)
	if err != nil {
		return Spec{}, err
	}

	transform := NewTransform(xs[0]-dx/2, ys[0]-dy/2, dx, dy)
	return New(crs, transform, len(ys), len(xs)), nil
}

// uniformSpacing returns the common step of a coordinate array.
func uniformSpacing(axis string, coords []float64) (float64, error) {
	if len(coords) < 2 {
		return 0, errors.NewValidationError(axis, len(coords),
			"need at least two coordinate values to derive a pixel size")
	}
	step := coords[1] - coords[0]
	if step == 0 {
		return 0, errors.NewValidationError(axis, coords, "zero coordinate spacing")
	}
	const tol = 1e-6
	for i := 2; i < len(coords); i++ {
		d := coords[i] - coords[i-1]
		if math.Abs(d-step) > tol*math.Abs(step) {
			return 0, errors.NewValidationError(axis, coords,
				fmt.Sprintf("non-uniform coordinate spacing at index %d (%g vs %g)", i, d, step))
		}
	}
	return step, nil
}
