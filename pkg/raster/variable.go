// Package raster provides the in-memory labeled-array data model the
// alignment engine operates on: variables with named dimensions over lazily
// evaluated buffers, grouped into datasets with shared coordinates. Missing
// data is represented as NaN in the float64 buffer.
package raster

import (
	"context"
	"fmt"
	"math"

	"github.com/atlaseo/gridalign/pkg/errors"
	"github.com/atlaseo/gridalign/pkg/lazy"
)

// Variable is a multi-dimensional array with named dimensions. The backing
// buffer may be deferred; metadata (dims, shape, dtype) is always concrete so
// the engine can plan transforms without materializing data.
type Variable struct {
	Dims  []string
	Shape []int
	DType DType
	Attrs map[string]string

	buf *lazy.Buffer
}

// New creates a variable over concrete row-major data. The data length must
// match the product of the shape.
func New(dims []string, shape []int, dtype DType, data []float64) (*Variable, error) {
	if len(dims) != len(shape) {
		return nil, errors.NewValidationError("dims", dims,
			fmt.Sprintf("got %d dims for %d-dimensional shape", len(dims), len(shape)))
	}
	if n := sizeOf(shape); len(data) != n {
		return nil, errors.NewValidationError("data", len(data),
			fmt.Sprintf("buffer holds %d values, shape needs %d", len(data), n))
	}
	return &Variable{
		Dims:  append([]string(nil), dims...),
		Shape: append([]int(nil), shape...),
		DType: dtype,
		buf:   lazy.FromValues(data),
	}, nil
}

// MustNew is New for test fixtures and literals; it panics on invalid input.
func MustNew(dims []string, shape []int, dtype DType, data []float64) *Variable {
	v, err := New(dims, shape, dtype, data)
	if err != nil {
		panic(err)
	}
	return v
}

// Deferred creates a variable whose buffer is produced by compute on first
// materialization. The compute closure must return exactly sizeOf(shape)
// values.
func Deferred(dims []string, shape []int, dtype DType, compute lazy.Compute) *Variable {
	return &Variable{
		Dims:  append([]string(nil), dims...),
		Shape: append([]int(nil), shape...),
		DType: dtype,
		buf:   lazy.Defer(compute),
	}
}

// Filled creates a variable with every element set to value.
func Filled(dims []string, shape []int, dtype DType, value float64) *Variable {
	data := make([]float64, sizeOf(shape))
	for i := range data {
		data[i] = value
	}
	v, _ := New(dims, shape, dtype, data)
	return v
}

// Size returns the total number of elements.
func (v *Variable) Size() int {
	return sizeOf(v.Shape)
}

// Buffer exposes the underlying lazy buffer for materialization scheduling.
func (v *Variable) Buffer() *lazy.Buffer {
	return v.buf
}

// Values forces the backing buffer and returns the row-major data. The
// returned slice is shared; callers must not mutate it.
func (v *Variable) Values(ctx context.Context) ([]float64, error) {
	return v.buf.Values(ctx)
}

// HasDim reports whether the variable declares the dimension.
func (v *Variable) HasDim(dim string) bool {
	return v.axis(dim) >= 0
}

// DimSize returns the length of the named dimension, or 0 if absent.
func (v *Variable) DimSize(dim string) int {
	if i := v.axis(dim); i >= 0 {
		return v.Shape[i]
	}
	return 0
}

// axis returns the index of dim within Dims, or -1.
func (v *Variable) axis(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// Copy returns a variable with copied metadata. The buffer is shared: the
// engine never mutates buffer contents, so sharing is safe and keeps derived
// views cheap.
func (v *Variable) Copy() *Variable {
	out := &Variable{
		Dims:  append([]string(nil), v.Dims...),
		Shape: append([]int(nil), v.Shape...),
		DType: v.DType,
		buf:   v.buf,
	}
	if v.Attrs != nil {
		out.Attrs = make(map[string]string, len(v.Attrs))
		for k, val := range v.Attrs {
			out.Attrs[k] = val
		}
	}
	return out
}

// Rename returns a copy with dimensions renamed per the mapping. Dimensions
// absent from the mapping keep their names.
func (v *Variable) Rename(mapping map[string]string) *Variable {
	out := v.Copy()
	for i, d := range out.Dims {
		if n, ok := mapping[d]; ok {
			out.Dims[i] = n
		}
	}
	return out
}

// Transpose returns a lazily transposed view with dimensions in the given
// order. Every declared dimension must appear exactly once.
func (v *Variable) Transpose(order ...string) (*Variable, error) {
	if len(order) != len(v.Dims) {
		return nil, errors.NewValidationError("order", order,
			fmt.Sprintf("got %d dims, variable has %d", len(order), len(v.Dims)))
	}

	perm := make([]int, len(order)) // perm[i] = source axis of output axis i
	seen := make(map[string]bool, len(order))
	for i, dim := range order {
		src := v.axis(dim)
		if src < 0 || seen[dim] {
			return nil, errors.NewValidationError("order", order,
				fmt.Sprintf("dimension %q does not name a distinct variable axis", dim))
		}
		seen[dim] = true
		perm[i] = src
	}

	identity := true
	for i, p := range perm {
		if p != i {
			identity = false
			break
		}
	}
	if identity {
		return v.Copy(), nil
	}

	outShape := make([]int, len(perm))
	for i, p := range perm {
		outShape[i] = v.Shape[p]
	}

	src := v
	out := Deferred(order, outShape, v.DType, func(ctx context.Context) ([]float64, error) {
		in, err := src.Values(ctx)
		if err != nil {
			return nil, err
		}
		return transposeData(in, src.Shape, perm, outShape), nil
	})
	out.Attrs = copyAttrs(v.Attrs)
	return out, nil
}

// At reads one element by multi-index from concrete data. Intended for tests
// and scalar probes; forces the buffer.
func (v *Variable) At(ctx context.Context, index ...int) (float64, error) {
	if len(index) != len(v.Shape) {
		return math.NaN(), errors.NewValidationError("index", index,
			fmt.Sprintf("got %d indices for %d-dimensional variable", len(index), len(v.Shape)))
	}
	data, err := v.Values(ctx)
	if err != nil {
		return math.NaN(), err
	}
	strides := rowMajorStrides(v.Shape)
	flat := 0
	for i, idx := range index {
		if idx < 0 || idx >= v.Shape[i] {
			return math.NaN(), errors.NewValidationError("index", index, "out of range")
		}
		flat += idx * strides[i]
	}
	return data[flat], nil
}

// sizeOf returns the element count of a shape.
func sizeOf(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// rowMajorStrides returns the element stride of each axis.
func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

// transposeData permutes row-major data. perm maps output axis to source axis.
func transposeData(in []float64, srcShape []int, perm, outShape []int) []float64 {
	out := make([]float64, len(in))
	srcStrides := rowMajorStrides(srcShape)
	outIndex := make([]int, len(outShape))

	for flat := range out {
		// decompose flat into the output multi-index
		rem := flat
		for i := len(outShape) - 1; i >= 0; i-- {
			outIndex[i] = rem % outShape[i]
			rem /= outShape[i]
		}
		srcFlat := 0
		for i, idx := range outIndex {
			srcFlat += idx * srcStrides[perm[i]]
		}
		out[flat] = in[srcFlat]
	}
	return out
}

func copyAttrs(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
