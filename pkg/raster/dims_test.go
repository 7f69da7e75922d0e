package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaseo/gridalign/pkg/errors"
)

func TestInferDims(t *testing.T) {
	tests := []struct {
		name  string
		dims  []string
		wantX string
		wantY string
	}{
		{"projected", []string{"time", "y", "x"}, "x", "y"},
		{"geographic", []string{"latitude", "longitude"}, "longitude", "latitude"},
		{"abbreviated", []string{"lat", "lon"}, "lon", "lat"},
		{"x wins over longitude", []string{"x", "longitude"}, "x", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape := make([]int, len(tt.dims))
			for i := range shape {
				shape[i] = 1
			}
			v := Filled(tt.dims, shape, Float64, 0)

			x, err := InferXDim("ds", "v", v)
			require.NoError(t, err)
			assert.Equal(t, tt.wantX, x)

			if tt.wantY != "" {
				y, err := InferYDim("ds", "v", v)
				require.NoError(t, err)
				assert.Equal(t, tt.wantY, y)
			}
		})
	}
}

func TestInferDimsFailure(t *testing.T) {
	v := Filled([]string{"time", "band"}, []int{1, 1}, Float64, 0)

	_, err := InferXDim("gfc", "treecover", v)
	require.Error(t, err)
	var infErr *errors.DimensionInferenceError
	require.ErrorAs(t, err, &infErr)
	assert.Equal(t, "gfc", infErr.Dataset)
	assert.Equal(t, "treecover", infErr.Variable)
	assert.Equal(t, "x", infErr.Axis)

	_, err = InferYDim("gfc", "treecover", v)
	require.Error(t, err)
}

func TestCanonicalOrder(t *testing.T) {
	v := Filled([]string{"x", "time", "y"}, []int{2, 1, 2}, Float64, 0)
	assert.Equal(t, []string{"time", "y", "x"}, CanonicalOrder(v, "x", "y"))

	v2 := Filled([]string{"lon", "lat"}, []int{2, 2}, Float64, 0)
	assert.Equal(t, []string{"lat", "lon"}, CanonicalOrder(v2, "lon", "lat"))
}
