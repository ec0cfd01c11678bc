package visualization

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testVolume builds a volume where each z slice holds z*50
func testVolume(width, height, depth int) []float64 {
	data := make([]float64, width*height*depth)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[z*width*height+y*width+x] = float64(z * 50)
			}
		}
	}
	return data
}

func TestExtractSlice(t *testing.T) {
	width, height, depth := 4, 3, 5
	viewer := NewViewer(testVolume(width, height, depth), []int{width, height, depth}, 255)

	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, width, height), img.Bounds())

		gray := img.(*image.Gray)
		assert.Equal(t, uint8(z*50), gray.GrayAt(1, 1).Y)
	}

	img, err := viewer.ExtractSlice("x", 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, depth, height), img.Bounds())
	assert.Equal(t, uint8(150), img.(*image.Gray).GrayAt(3, 0).Y)

	img, err = viewer.ExtractSlice("Y", 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, width, depth), img.Bounds())
}

func TestExtractSliceErrors(t *testing.T) {
	viewer := NewViewer(testVolume(2, 2, 2), []int{2, 2, 2}, 255)

	_, err := viewer.ExtractSlice("w", 0)
	assert.Error(t, err)
	_, err = viewer.ExtractSlice("z", -1)
	assert.Error(t, err)
	_, err = viewer.ExtractSlice("z", 2)
	assert.Error(t, err)
}

func TestViewerScalesToMaxValue(t *testing.T) {
	viewer := NewViewer([]float64{0, 0.5, 1, 2}, []int{4}, 1)
	img, err := viewer.ExtractSlice("z", 0)
	require.NoError(t, err)

	gray := img.(*image.Gray)
	assert.Equal(t, uint8(0), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(128), gray.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(255), gray.GrayAt(2, 0).Y)
	assert.Equal(t, uint8(255), gray.GrayAt(3, 0).Y)
}

func TestSaveMidSlices(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "previews")
	viewer := NewViewer(testVolume(6, 6, 6), []int{6, 6, 6}, 255)

	paths, err := viewer.SaveMidSlices(dir, "IBD_0000")
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Equal(t, filepath.Join(dir, "IBD_0000_z.png"), paths[2])
}
