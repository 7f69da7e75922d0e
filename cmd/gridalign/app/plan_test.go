package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaseo/gridalign/pkg/align"
	"github.com/atlaseo/gridalign/pkg/resample"
)

const samplePlan = `
target: cci_biomass
crs: EPSG:3035
resolution: 100
snap: nearest_multiple
coarsen:
  factor: 2
  default: mean
  vars:
    class: mode
resampling:
  cci_biomass:
    default: average
    vars:
      disturbance: nearest
  radd_europe: nearest
`

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan([]byte(samplePlan))
	require.NoError(t, err)

	assert.Equal(t, "cci_biomass", plan.Target)
	assert.Equal(t, "EPSG:3035", plan.CRS)
	assert.Equal(t, 100.0, plan.Resolution)
	assert.Equal(t, "nearest_multiple", plan.Snap)
	require.NotNil(t, plan.Coarsen)
	assert.Equal(t, 2, plan.Coarsen.Factor)
	assert.Equal(t, []string{"cci_biomass", "radd_europe"}, plan.Datasets())
}

func TestPlanOptionsBuildAligner(t *testing.T) {
	plan, err := ParsePlan([]byte(samplePlan))
	require.NoError(t, err)

	opts, err := plan.Options()
	require.NoError(t, err)

	aligner, err := align.New(opts...)
	require.NoError(t, err)

	policy, err := aligner.ResolvePolicy("cci_biomass")
	require.NoError(t, err)
	assert.Equal(t, resample.Average, policy.Default)
	assert.Equal(t, resample.Nearest, policy.Overrides["disturbance"])

	policy, err = aligner.ResolvePolicy("radd_europe")
	require.NoError(t, err)
	assert.Equal(t, resample.Nearest, policy.Default)
	assert.Empty(t, policy.Overrides)

	_, err = aligner.ResolvePolicy("unlisted")
	assert.Error(t, err, "datasets without an entry must fail loudly")
}

func TestPlanGlobalResampling(t *testing.T) {
	plan, err := ParsePlan([]byte("target: a\nresampling: bilinear\n"))
	require.NoError(t, err)

	opts, err := plan.Options()
	require.NoError(t, err)

	aligner, err := align.New(opts...)
	require.NoError(t, err)

	policy, err := aligner.ResolvePolicy("anything")
	require.NoError(t, err)
	assert.Equal(t, resample.Bilinear, policy.Default)
	assert.Nil(t, plan.Datasets(), "global plans cover no named datasets")
}

func TestPlanValidation(t *testing.T) {
	t.Run("unknown method", func(t *testing.T) {
		plan, err := ParsePlan([]byte("target: a\nresampling: fancy\n"))
		require.NoError(t, err)
		_, err = plan.Options()
		assert.Error(t, err)
	})

	t.Run("unknown snap mode", func(t *testing.T) {
		plan, err := ParsePlan([]byte("target: a\nsnap: sometimes\n"))
		require.NoError(t, err)
		_, err = plan.Options()
		assert.Error(t, err)
	})

	t.Run("unknown coarsen aggregation", func(t *testing.T) {
		plan, err := ParsePlan([]byte("target: a\ncoarsen: {factor: 2, default: q1}\n"))
		require.NoError(t, err)
		_, err = plan.Options()
		assert.Error(t, err)
	})

	t.Run("missing target and crs", func(t *testing.T) {
		plan, err := ParsePlan([]byte("resampling: nearest\n"))
		require.NoError(t, err)
		opts, err := plan.Options()
		require.NoError(t, err)
		_, err = align.New(opts...)
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParsePlan([]byte(":\n  - ["))
		assert.Error(t, err)
	})
}

func TestLoadPlanMissingFile(t *testing.T) {
	_, err := LoadPlan("/nonexistent/plan.yaml")
	assert.Error(t, err)
}
