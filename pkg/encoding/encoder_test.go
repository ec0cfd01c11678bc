package encoding

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgeuncertainty/internal/models"
	"edgeuncertainty/pkg/uncertainty"
)

// encodeData classifies, scores and encodes a flat volume
func encodeData(t *testing.T, policy Policy, data ...float64) (*Volume, *models.VoxelClassification) {
	t.Helper()
	meta := models.Metadata{Raw: []byte{1, 2, 3}, Extensions: []byte{9}}
	vol, err := models.NewProbabilityVolume(data, []int{len(data)}, meta)
	require.NoError(t, err)

	c := uncertainty.Classify(vol)
	m, err := uncertainty.Compute("case", vol, c)
	require.NoError(t, err)

	enc, err := Encode(vol, c, m, policy)
	require.NoError(t, err)
	return enc, c
}

func TestDiscretize(t *testing.T) {
	assert.Equal(t, uint8(128), Discretize(0.4, 0.8))
	assert.Equal(t, uint8(255), Discretize(0.8, 0.8))
	assert.Equal(t, uint8(1), Discretize(1e-9, 0.8))
	assert.Equal(t, uint8(255), Discretize(2, 0.8))
}

func TestCertainValuePolicy(t *testing.T) {
	t.Run("scaled minimum uncertainty", func(t *testing.T) {
		enc, _ := encodeData(t, DefaultPolicy(), 0, 0.9, 0.5, 1, 1)
		assert.InDelta(t, 0.095, enc.CertainValue, 1e-12)
		assert.InDelta(t, 0.095, enc.Continuous[3], 1e-12)
		assert.InDelta(t, 0.095, enc.Continuous[4], 1e-12)
		assert.Equal(t, 2, enc.CertainVoxels)
	})

	t.Run("fallback for binary masks", func(t *testing.T) {
		enc, _ := encodeData(t, DefaultPolicy(), 0, 1, 1, 0)
		assert.Equal(t, 0.01, enc.CertainValue)
		assert.Equal(t, []float64{0, 0.01, 0.01, 0}, enc.Continuous)
		assert.Equal(t, []uint8{0, 255, 255, 0}, enc.Discrete)
	})

	t.Run("certain foreground excluded", func(t *testing.T) {
		p := DefaultPolicy()
		p.IncludeCertain = false
		enc, _ := encodeData(t, p, 0, 0.5, 1)
		assert.Equal(t, []float64{0, 0.5, 0}, enc.Continuous)
		assert.Equal(t, []uint8{0, 255, 0}, enc.Discrete)
		assert.Zero(t, enc.CertainVoxels)
	})
}

func TestEncodeValues(t *testing.T) {
	// uncertainties 0.8 and 0.4, certain value 0.38
	enc, _ := encodeData(t, DefaultPolicy(), 0, 0.2, 0.6, 1)

	assert.InDelta(t, 0.8, enc.MaxContinuous, 1e-12)
	assert.InDelta(t, 0.8, enc.Continuous[1], 1e-12)
	assert.InDelta(t, 0.4, enc.Continuous[2], 1e-12)
	assert.InDelta(t, 0.38, enc.Continuous[3], 1e-12)

	assert.Equal(t, uint8(0), enc.Discrete[0])
	assert.Equal(t, uint8(255), enc.Discrete[1])
	assert.Equal(t, uint8(128), enc.Discrete[2])
	assert.Equal(t, uint8(122), enc.Discrete[3])
}

// TestZeroIffBackground checks discrete == 0 <=> continuous == 0 <=> background
func TestZeroIffBackground(t *testing.T) {
	enc, c := encodeData(t, DefaultPolicy(), 0, 0.999999, 1, 0.001, 0, 3, -1, 0.5)
	for i := range enc.Continuous {
		bg := c.Labels[i] == models.Background
		assert.Equal(t, bg, enc.Continuous[i] == 0, "continuous at %d", i)
		assert.Equal(t, bg, enc.Discrete[i] == 0, "discrete at %d", i)
	}
}

func TestNonZeroIndicesMatchForeground(t *testing.T) {
	enc, c := encodeData(t, DefaultPolicy(), 0.3, 0, 1, 0, 0.7, 1, 0)

	want := append(c.Indices(models.Uncertain), c.Indices(models.CertainForeground)...)
	sort.Ints(want)
	assert.Equal(t, want, enc.NonZeroIndices())
}

func TestEncodeAllBackground(t *testing.T) {
	enc, _ := encodeData(t, DefaultPolicy(), 0, 0, 0)
	assert.Zero(t, enc.MaxContinuous)
	assert.Equal(t, []uint8{0, 0, 0}, enc.Discrete)
	assert.Empty(t, enc.NonZeroValues())
	assert.Equal(t, Summary{CertainValue: DefaultFallbackValue}, enc.Summary())
}

func TestEncodePreservesShapeAndMetadata(t *testing.T) {
	data := []float64{0, 0.5, 1, 0.25, 0, 1}
	meta := models.Metadata{Raw: []byte{7, 7}, BigEndian: true}
	vol, err := models.NewProbabilityVolume(data, []int{3, 2}, meta)
	require.NoError(t, err)
	c := uncertainty.Classify(vol)
	m, err := uncertainty.Compute("shape", vol, c)
	require.NoError(t, err)

	enc, err := Encode(vol, c, m, DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2}, enc.Dims)
	assert.Len(t, enc.Continuous, 6)
	assert.Len(t, enc.Discrete, 6)
	assert.Equal(t, meta, enc.Meta)

	vol.Meta.Raw[0] = 0
	assert.Equal(t, byte(7), enc.Meta.Raw[0], "encoding must not alias source metadata")
	assert.Equal(t, []float64{0, 0.5, 1, 0.25, 0, 1}, vol.Data, "source must not be mutated")
}

func TestEncodeShapeMismatch(t *testing.T) {
	vol, err := models.NewProbabilityVolume([]float64{0.5, 0}, []int{2}, models.Metadata{})
	require.NoError(t, err)
	_, err = Encode(vol, &models.VoxelClassification{}, models.CaseMetrics{}, DefaultPolicy())
	assert.ErrorIs(t, err, models.ErrShape)
}

func TestSummary(t *testing.T) {
	enc, _ := encodeData(t, DefaultPolicy(), 0, 0.5, 0.9, 1)
	s := enc.Summary()

	assert.Equal(t, 3, s.Count)
	assert.True(t, s.HasCertain)
	assert.InDelta(t, 0.095, s.CertainValue, 1e-12)
	assert.InDelta(t, 0.095, s.Min, 1e-12)
	assert.InDelta(t, 0.5, s.Max, 1e-12)
	assert.InDelta(t, (0.5+0.1+0.095)/3, s.Mean, 1e-12)
}

func TestLegend(t *testing.T) {
	require.Len(t, Legend, 11)
	assert.Equal(t, "Background", Legend[0].Label)
	assert.Equal(t, "Maximum Uncertainty", Legend[10].Label)

	want := []uint8{0, 25, 51, 76, 102, 127, 153, 178, 204, 229, 255}
	for i, e := range Legend {
		assert.Equal(t, want[i], e.Value)
	}

	assert.Equal(t, "Background", LegendFor(0).Label)
	assert.Equal(t, "Med Uncertainty", LegendFor(110).Label)
	assert.Equal(t, "Maximum Uncertainty", LegendFor(255).Label)
}
