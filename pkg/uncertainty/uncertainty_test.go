package uncertainty

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgeuncertainty/internal/models"
)

// newVolume builds a one-dimensional volume around data
func newVolume(t *testing.T, data ...float64) *models.ProbabilityVolume {
	t.Helper()
	vol, err := models.NewProbabilityVolume(data, []int{len(data)}, models.Metadata{})
	require.NoError(t, err)
	return vol
}

func TestClassifyValue(t *testing.T) {
	tests := []struct {
		p    float64
		want models.VoxelClass
	}{
		{0, models.Background},
		{1, models.CertainForeground},
		{0.5, models.Uncertain},
		{1e-9, models.Uncertain},
		{0.999999, models.Uncertain},
		{1.5, models.CertainForeground},
		{-0.2, models.CertainForeground},
		{math.NaN(), models.CertainForeground},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyValue(tt.p), "p=%v", tt.p)
	}
}

// TestClassifyPartition checks that every voxel lands in exactly one class
func TestClassifyPartition(t *testing.T) {
	data := []float64{0, 0.1, 1, 0, 0.7, 1, 1.2, -1, 0.5, 0}
	vol := newVolume(t, data...)
	c := Classify(vol)

	bg := c.Indices(models.Background)
	cf := c.Indices(models.CertainForeground)
	un := c.Indices(models.Uncertain)

	seen := make(map[int]int)
	for _, set := range [][]int{bg, cf, un} {
		for _, i := range set {
			seen[i]++
		}
	}
	require.Len(t, seen, len(data))
	for i, n := range seen {
		assert.Equal(t, 1, n, "voxel %d classified %d times", i, n)
	}

	assert.Equal(t, []int{0, 3, 9}, bg)
	assert.Equal(t, []int{2, 5, 6, 7}, cf)
	assert.Equal(t, []int{1, 4, 8}, un)
	assert.Equal(t, len(data), c.BackgroundCount+c.CertainForegroundCount+c.UncertainCount)
}

func TestClassifyDoesNotMutate(t *testing.T) {
	data := []float64{0, 0.25, 1}
	vol := newVolume(t, data...)
	Classify(vol)
	assert.Equal(t, []float64{0, 0.25, 1}, vol.Data)
}

func TestBinaryMask(t *testing.T) {
	vol := newVolume(t, 0, 1, 1, 0, 1)
	c := Classify(vol)
	assert.True(t, c.IsBinary())
	assert.Empty(t, c.Indices(models.Uncertain))

	m, err := Compute("binary", vol, c)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.MeanUncertainty)
	assert.Equal(t, 0, m.CountUncertain)
	assert.Equal(t, 0.0, m.SumUncertainty)
	assert.Equal(t, 0.0, m.MinProbability)
	assert.Equal(t, 1.0, m.MaxProbability)
	assert.Equal(t, 3, m.CertainForegroundVoxels)
	assert.True(t, m.IsBinary())
}

func TestMeanUncertainty(t *testing.T) {
	vol := newVolume(t, 0, 0.2, 0.5, 0.8, 0)
	c := Classify(vol)
	assert.InDelta(t, 0.5, MeanUncertainty(vol, c), 1e-12)
}

func TestSumUncertainty(t *testing.T) {
	t.Run("soft and certain foreground", func(t *testing.T) {
		vol := newVolume(t, 1.0, 1.0, 0.5, 0, 0)
		assert.InDelta(t, 0.5, SumUncertainty(vol), 1e-12)
	})

	t.Run("counts non-zero voxels over the whole volume", func(t *testing.T) {
		vol := newVolume(t, 0.25, 0.25, 1, 0)
		// 3 non-zero voxels, sum 1.5
		assert.InDelta(t, 1.5, SumUncertainty(vol), 1e-12)
	})

	t.Run("empty volume", func(t *testing.T) {
		vol := newVolume(t, 0, 0, 0)
		assert.Equal(t, 0.0, SumUncertainty(vol))
	})
}

func TestCompute(t *testing.T) {
	vol := newVolume(t, 0, 0.2, 0.5, 0.8, 1, 1)
	c := Classify(vol)
	m, err := Compute("case-1", vol, c)
	require.NoError(t, err)

	assert.Equal(t, "case-1", m.CaseID)
	assert.Equal(t, 6, m.TotalVoxels)
	assert.Equal(t, 1, m.BackgroundVoxels)
	assert.Equal(t, 2, m.CertainForegroundVoxels)
	assert.Equal(t, 3, m.CountUncertain)
	assert.InDelta(t, 0.5, m.MeanUncertainty, 1e-12)
	assert.InDelta(t, 5-3.5, m.SumUncertainty, 1e-12)
	assert.InDelta(t, 1.5, m.FuzzinessScore, 1e-12)
	assert.InDelta(t, 0.2, m.MinUncertainty, 1e-12)
	assert.InDelta(t, 0.2, m.MinProbability, 1e-12)
	assert.InDelta(t, 0.8, m.MaxProbability, 1e-12)
	assert.InDelta(t, 0.5, m.MeanProbability, 1e-12)
	assert.InDelta(t, math.Sqrt(0.06), m.StdUncertainty, 1e-9)
}

func TestComputeShapeMismatch(t *testing.T) {
	vol := newVolume(t, 0, 0.5)
	other := Classify(newVolume(t, 0))
	_, err := Compute("bad", vol, other)
	assert.ErrorIs(t, err, models.ErrShape)
}
