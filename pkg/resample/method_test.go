package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaseo/gridalign/pkg/errors"
)

func TestParse(t *testing.T) {
	m, err := Parse("Average", "ds", "")
	require.NoError(t, err)
	assert.Equal(t, Average, m)

	m, err = Parse(" nearest ", "ds", "")
	require.NoError(t, err)
	assert.Equal(t, Nearest, m)

	_, err = Parse("blurry", "gfc", "treecover")
	require.Error(t, err)
	specErr, ok := errors.AsResamplingSpec(err)
	require.True(t, ok)
	assert.Equal(t, "gfc", specErr.Dataset)
	assert.Equal(t, "treecover", specErr.Variable)
	assert.Equal(t, "blurry", specErr.Method)
}

func TestIsReducer(t *testing.T) {
	for _, m := range []Method{Average, Mode, Max, Min, Med, Q1, Q3, Sum, RMS} {
		assert.True(t, m.IsReducer(), string(m))
	}
	for _, m := range []Method{Nearest, Bilinear, Cubic, CubicSpline, Lanczos} {
		assert.False(t, m.IsReducer(), string(m))
	}
}

func TestReduce(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		method Method
		vals   []float64
		want   float64
	}{
		{Average, []float64{1, 2, 3, 4}, 2.5},
		{Average, []float64{1, nan, 3}, 2},
		{Sum, []float64{1, 2, nan}, 3},
		{Max, []float64{1, 5, nan, 3}, 5},
		{Min, []float64{4, nan, -1, 3}, -1},
		{Mode, []float64{2, 2, 3, 3, 3, 1}, 3},
		{Mode, []float64{5, nan, 5, 7}, 5},
		{Med, []float64{1, 2, 3, 4, 5}, 3},
		{Med, []float64{1, 2, 3, 4}, 2.5},
		{Q1, []float64{0, 1, 2, 3, 4}, 1},
		{Q3, []float64{0, 1, 2, 3, 4}, 3},
		{RMS, []float64{3, 4}, math.Sqrt(12.5)},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.method.Reduce(tt.vals), 1e-12)
		})
	}
}

func TestReduceAllMissing(t *testing.T) {
	nan := math.NaN()
	assert.True(t, math.IsNaN(Average.Reduce([]float64{nan, nan})))
	assert.True(t, math.IsNaN(Mode.Reduce(nil)))
}

func TestModeTieBreaksDeterministically(t *testing.T) {
	// two values tied at two occurrences each: the smaller wins
	for i := 0; i < 20; i++ {
		assert.Equal(t, 2.0, Mode.Reduce([]float64{7, 2, 7, 2}))
	}
}
