package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

// Viewer extracts axis-aligned 2D slices from a volume for quick-look
// previews of uncertainty masks.
type Viewer struct {
	// volumeData holds the voxel values, first dimension fastest
	volumeData []float64

	// dimensions of the volume
	width  int
	height int
	depth  int

	// maxValue maps to white
	maxValue float64
}

// NewViewer creates a viewer over data with the given dims. Missing
// dimensions count as 1 and dimensions beyond the third are ignored.
// maxValue is the value rendered as white (255 for discrete masks).
func NewViewer(volumeData []float64, dims []int, maxValue float64) *Viewer {
	size := [3]int{1, 1, 1}
	for i := 0; i < len(dims) && i < 3; i++ {
		size[i] = dims[i]
	}
	if maxValue <= 0 {
		maxValue = 1
	}
	return &Viewer{
		volumeData: volumeData,
		width:      size[0],
		height:     size[1],
		depth:      size[2],
		maxValue:   maxValue,
	}
}

func (v *Viewer) gray(idx int) color.Gray {
	if idx >= len(v.volumeData) {
		return color.Gray{}
	}
	scaled := v.volumeData[idx] / v.maxValue * 255
	return color.Gray{Y: uint8(math.Max(0, math.Min(255, math.Round(scaled))))}
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray

	switch axis {
	case "x", "X":
		// Extract slice along YZ plane
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}

		img = image.NewGray(image.Rect(0, 0, v.depth, v.height))
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				img.SetGray(z, y, v.gray(z*v.width*v.height+y*v.width+position))
			}
		}

	case "y", "Y":
		// Extract slice along XZ plane
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}

		img = image.NewGray(image.Rect(0, 0, v.width, v.depth))
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				img.SetGray(x, z, v.gray(z*v.width*v.height+position*v.width+x))
			}
		}

	case "z", "Z":
		// Extract slice along XY plane
		if position >= v.depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}

		img = image.NewGray(image.Rect(0, 0, v.width, v.height))
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				img.SetGray(x, y, v.gray(position*v.width*v.height+y*v.width+x))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a PNG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveMidSlices writes the middle slice along each axis to
// <outputDir>/<prefix>_<axis>.png and returns the paths.
func (v *Viewer) SaveMidSlices(outputDir, prefix string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	mids := map[string]int{"x": v.width / 2, "y": v.height / 2, "z": v.depth / 2}
	var paths []string
	for _, axis := range []string{"x", "y", "z"} {
		img, err := v.ExtractSlice(axis, mids[axis])
		if err != nil {
			return paths, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", prefix, axis))
		if err := v.SaveSlice(img, filename); err != nil {
			return paths, err
		}
		paths = append(paths, filename)
	}

	return paths, nil
}
