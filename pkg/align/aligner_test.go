package align

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaseo/gridalign/pkg/coarsen"
	"github.com/atlaseo/gridalign/pkg/errors"
	"github.com/atlaseo/gridalign/pkg/raster"
	"github.com/atlaseo/gridalign/pkg/resample"
)

func TestAlignSelfIsIdempotent(t *testing.T) {
	ctx := context.Background()
	nan := math.NaN()
	data := []float64{
		1, 2, 3,
		4, nan, 6,
		7, 8, 9,
	}
	ds := refDataset("EPSG:4326", "v",
		[]float64{0.85, 0.75, 0.65},
		[]float64{0.05, 0.15, 0.25}, data)

	for _, method := range []resample.Method{resample.Nearest, resample.Bilinear, resample.Average} {
		a, err := New(WithTarget("a"), WithResampling(resample.Global{Method: method}))
		require.NoError(t, err)

		out, err := a.Align(ctx, map[string]*raster.Dataset{"a": ds})
		require.NoError(t, err)
		require.NoError(t, a.Materialize(ctx, out))

		v, ok := out.Var("v")
		require.True(t, ok)
		got, err := v.Values(ctx)
		require.NoError(t, err)
		for i := range data {
			if math.IsNaN(data[i]) {
				assert.True(t, math.IsNaN(got[i]), "method %s index %d", method, i)
				continue
			}
			assert.InDelta(t, data[i], got[i], 1e-9, "method %s index %d", method, i)
		}
	}
}

func TestAlignSubsetLeavesMissingOutside(t *testing.T) {
	ctx := context.Background()

	ref := refDataset("EPSG:4326", "ref",
		[]float64{0.95, 0.85, 0.75, 0.65},
		[]float64{0.05, 0.15, 0.25, 0.35}, nil)

	// b covers only the top-left quarter of the reference extent
	sub := refDataset("EPSG:4326", "b",
		[]float64{0.95, 0.85},
		[]float64{0.05, 0.15},
		[]float64{1, 2, 3, 4})

	a, err := New(WithTarget("a"))
	require.NoError(t, err)

	out, err := a.Align(ctx, map[string]*raster.Dataset{"a": ref, "b": sub})
	require.NoError(t, err)

	v, ok := out.Var("b")
	require.True(t, ok)
	assert.Equal(t, []int{4, 4}, v.Shape, "subset variable adopts the target shape")

	got, err := v.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got[0])
	assert.Equal(t, 2.0, got[1])
	assert.Equal(t, 3.0, got[4])
	assert.Equal(t, 4.0, got[5])
	assert.True(t, math.IsNaN(got[2]), "east of the subset extent")
	assert.True(t, math.IsNaN(got[15]), "south-east corner outside the subset")
}

func TestAlignCoarserSourceOntoFineReference(t *testing.T) {
	ctx := context.Background()

	// reference at 0.1 degrees over [0, 0.8] x [0, 0.8]
	xs := make([]float64, 8)
	ys := make([]float64, 8)
	for i := range xs {
		xs[i] = float64(i)*0.1 + 0.05
		ys[i] = 0.75 - float64(i)*0.1
	}
	ref := refDataset("EPSG:4326", "ref", ys, xs, nil)

	// b at 0.2 degrees covering only the north-west quarter
	sub := refDataset("EPSG:4326", "b",
		[]float64{0.7, 0.5},
		[]float64{0.1, 0.3},
		[]float64{1, 2, 3, 4})

	a, err := New(WithTarget("a"), WithResampling(resample.Global{Method: resample.Average}))
	require.NoError(t, err)

	out, err := a.Align(ctx, map[string]*raster.Dataset{"a": ref, "b": sub})
	require.NoError(t, err)

	v, ok := out.Var("b")
	require.True(t, ok)
	assert.Equal(t, []int{8, 8}, v.Shape, "coarse variable adopts the reference shape")

	got, err := v.Values(ctx)
	require.NoError(t, err)
	want := []float64{1, 2, 3, 4}
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			val := got[r*8+c]
			if r < 4 && c < 4 {
				// each fine pixel reads its containing coarse pixel
				assert.Equal(t, want[(r/2)*2+c/2], val, "pixel (%d,%d)", r, c)
				continue
			}
			assert.True(t, math.IsNaN(val), "pixel (%d,%d) outside the subset must be missing, not zero", r, c)
		}
	}
}

func TestAlignPerVariableOverride(t *testing.T) {
	ctx := context.Background()

	data := make([]float64, 16)
	for i := range data {
		data[i] = float64(i)
	}
	ds := refDataset("EPSG:4326", "biomass",
		[]float64{0.95, 0.85, 0.75, 0.65},
		[]float64{0.05, 0.15, 0.25, 0.35}, data)
	ds.SetVar("class", raster.MustNew([]string{"latitude", "longitude"}, []int{4, 4}, raster.Uint8, append([]float64(nil), data...)))

	spec := resample.PerDatasetWithOverrides{
		"a": {Default: resample.Average, Vars: map[string]resample.Method{"class": resample.Nearest}},
	}
	a, err := New(WithTarget("a"), WithResolution(0.2), WithResampling(spec))
	require.NoError(t, err)

	out, err := a.Align(ctx, map[string]*raster.Dataset{"a": ds})
	require.NoError(t, err)

	// averaged variable aggregates each 2x2 source block
	biomass, _ := out.Var("biomass")
	got, err := biomass.At(ctx, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, got, 1e-9)

	// overridden variable samples a single source pixel instead
	class, _ := out.Var("class")
	got, err = class.At(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)
}

func TestAlignOverrideMustNameExistingVariable(t *testing.T) {
	ds := refDataset("EPSG:4326", "v", []float64{0.95, 0.85}, []float64{0.05, 0.15}, nil)

	spec := resample.PerDatasetWithOverrides{
		"a": {Default: resample.Nearest, Vars: map[string]resample.Method{"ghost": resample.Mode}},
	}
	a, err := New(WithTarget("a"), WithResampling(spec))
	require.NoError(t, err)

	_, err = a.Align(context.Background(), map[string]*raster.Dataset{"a": ds})
	require.Error(t, err)
	specErr, ok := errors.AsResamplingSpec(err)
	require.True(t, ok)
	assert.Equal(t, "a", specErr.Dataset)
	assert.Equal(t, "ghost", specErr.Variable)
}

func TestAlignCrossCRS(t *testing.T) {
	ctx := context.Background()

	// reference in geographic coordinates
	ref := refDataset("EPSG:4326", "ref",
		[]float64{3.0, 1.2},
		[]float64{0.9, 2.7}, []float64{0, 0, 0, 0})

	// source in web-mercator meters, value encodes row*10+col
	merc := raster.NewDataset()
	merc.SetVar("b", raster.MustNew([]string{"y", "x"}, []int{4, 4}, raster.Float64, []float64{
		0, 1, 2, 3,
		10, 11, 12, 13,
		20, 21, 22, 23,
		30, 31, 32, 33,
	}))
	merc.SetCoord("x", []float64{50000, 150000, 250000, 350000})
	merc.SetCoord("y", []float64{350000, 250000, 150000, 50000})
	merc.SetCRS("EPSG:3857")

	a, err := New(WithTarget("a"))
	require.NoError(t, err)

	out, err := a.Align(ctx, map[string]*raster.Dataset{"a": ref, "b": merc})
	require.NoError(t, err)

	v, ok := out.Var("b")
	require.True(t, ok)
	assert.Equal(t, []string{"latitude", "longitude"}, v.Dims)

	got, err := v.Values(ctx)
	require.NoError(t, err)
	// lon 0.9/2.7 project into mercator columns 1 and 3; lat 3.0/1.2 into
	// rows 0 and 2
	assert.Equal(t, []float64{1, 3, 21, 23}, got)
}

func TestAlignCanonicalizesAxesAndCRS(t *testing.T) {
	ctx := context.Background()

	ds := raster.NewDataset()
	ds.SetVar("v", raster.MustNew([]string{"y", "x"}, []int{2, 2}, raster.Float64, []float64{1, 2, 3, 4}))
	ds.SetCoord("x", []float64{0.05, 0.15})
	ds.SetCoord("y", []float64{0.95, 0.85})
	ds.SetCRS("EPSG:4326")

	a, err := New(WithTarget("a"))
	require.NoError(t, err)

	out, err := a.Align(ctx, map[string]*raster.Dataset{"a": ds})
	require.NoError(t, err)

	v, ok := out.Var("v")
	require.True(t, ok)
	assert.Equal(t, []string{"latitude", "longitude"}, v.Dims)

	xs, ok := out.Coord("longitude")
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.05, 0.15}, xs, 1e-12)
	ys, ok := out.Coord("latitude")
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.95, 0.85}, ys, 1e-12)

	gotCRS, ok := out.CRS()
	require.True(t, ok)
	assert.Equal(t, "EPSG:4326", gotCRS)
}

func TestAlignTransposesToCanonicalOrder(t *testing.T) {
	ctx := context.Background()

	// (x, time, y) ordering must come out as (time, latitude, longitude)
	ds := raster.NewDataset()
	ds.SetVar("v", raster.MustNew([]string{"x", "time", "y"}, []int{2, 1, 2}, raster.Float64, []float64{
		1, 3,
		2, 4,
	}))
	ds.SetCoord("x", []float64{0.05, 0.15})
	ds.SetCoord("y", []float64{0.95, 0.85})
	ds.SetCoord("time", []float64{0})
	ds.SetCRS("EPSG:4326")

	a, err := New(WithTarget("a"))
	require.NoError(t, err)

	out, err := a.Align(ctx, map[string]*raster.Dataset{"a": ds})
	require.NoError(t, err)

	v, ok := out.Var("v")
	require.True(t, ok)
	assert.Equal(t, []string{"time", "latitude", "longitude"}, v.Dims)
	assert.Equal(t, []int{1, 2, 2}, v.Shape)

	got, err := v.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, got)

	ts, ok := out.Coord("time")
	require.True(t, ok)
	assert.Equal(t, []float64{0}, ts, "non-spatial coordinates are carried through")
}

func TestAlignCoarsensBeforeReprojection(t *testing.T) {
	ctx := context.Background()

	data := make([]float64, 16)
	for i := range data {
		data[i] = float64(i)
	}
	ds := refDataset("EPSG:4326", "v",
		[]float64{0.95, 0.85, 0.75, 0.65},
		[]float64{0.05, 0.15, 0.25, 0.35}, data)

	a, err := New(WithTarget("a"), WithCoarsening(2, coarsen.Policy{Default: coarsen.Mean}))
	require.NoError(t, err)

	out, err := a.Align(ctx, map[string]*raster.Dataset{"a": ds})
	require.NoError(t, err)

	// the target grid keeps the reference shape; every output pixel reads its
	// coarsened 2x2 block mean
	v, _ := out.Var("v")
	assert.Equal(t, []int{4, 4}, v.Shape)

	got, err := v.At(ctx, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, got, 1e-9)

	got, err = v.At(ctx, 3, 3)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, got, 1e-9)
}

func TestAlignMergeRejectsDuplicateVariables(t *testing.T) {
	dsA := refDataset("EPSG:4326", "v", []float64{0.95, 0.85}, []float64{0.05, 0.15}, nil)
	dsB := refDataset("EPSG:4326", "v", []float64{0.95, 0.85}, []float64{0.05, 0.15}, nil)

	a, err := New(WithTarget("a"))
	require.NoError(t, err)

	_, err = a.Align(context.Background(), map[string]*raster.Dataset{"a": dsA, "b": dsB})
	require.Error(t, err)
	mergeErr, ok := errors.AsMerge(err)
	require.True(t, ok)
	assert.Contains(t, mergeErr.Datasets, "a")
	assert.Contains(t, mergeErr.Datasets, "b")
}

func TestAlignValidation(t *testing.T) {
	a, err := New(WithTarget("a"))
	require.NoError(t, err)

	_, err = a.Align(context.Background(), nil)
	assert.Error(t, err, "empty input")

	ds := refDataset("EPSG:4326", "ref", []float64{0.95, 0.85}, []float64{0.05, 0.15}, nil)
	_, err = a.Align(context.Background(), map[string]*raster.Dataset{"a": ds, "b": nil})
	require.Error(t, err)
	assert.ErrorContains(t, err, `"b"`)
	assert.ErrorContains(t, err, "expected a raster dataset")
}

func TestAlignMissingCRS(t *testing.T) {
	ds := raster.NewDataset()
	ds.SetVar("v", raster.Filled([]string{"y", "x"}, []int{2, 2}, raster.Float64, 0))
	ds.SetCoord("x", []float64{0.05, 0.15})
	ds.SetCoord("y", []float64{0.95, 0.85})

	a, err := New(WithTarget("a"))
	require.NoError(t, err)

	_, err = a.Align(context.Background(), map[string]*raster.Dataset{"a": ds})
	require.Error(t, err)
	crsErr, ok := errors.AsCRSResolution(err)
	require.True(t, ok)
	assert.Equal(t, "a", crsErr.Dataset)
}

func TestAlignStaysLazyUntilMaterialize(t *testing.T) {
	ctx := context.Background()
	ds := refDataset("EPSG:4326", "v", []float64{0.95, 0.85}, []float64{0.05, 0.15}, nil)

	a, err := New(WithTarget("a"))
	require.NoError(t, err)

	out, err := a.Align(ctx, map[string]*raster.Dataset{"a": ds})
	require.NoError(t, err)

	v, _ := out.Var("v")
	assert.False(t, v.Buffer().Materialized())

	require.NoError(t, a.Materialize(ctx, out))
	assert.True(t, v.Buffer().Materialized())
}

func TestAlignInputsNotMutated(t *testing.T) {
	ctx := context.Background()
	ds := raster.NewDataset()
	ds.SetVar("v", raster.MustNew([]string{"y", "x"}, []int{2, 2}, raster.Float64, []float64{1, 2, 3, 4}))
	ds.SetCoord("x", []float64{0.05, 0.15})
	ds.SetCoord("y", []float64{0.95, 0.85})
	ds.SetCRS("EPSG:4326")

	a, err := New(WithTarget("a"))
	require.NoError(t, err)

	out, err := a.Align(ctx, map[string]*raster.Dataset{"a": ds})
	require.NoError(t, err)
	require.NoError(t, a.Materialize(ctx, out))

	v, _ := ds.Var("v")
	assert.Equal(t, []string{"y", "x"}, v.Dims, "source keeps its original axis names")
	_, hasOld := out.Coord("x")
	assert.False(t, hasOld, "aligned output uses canonical names only")
}
