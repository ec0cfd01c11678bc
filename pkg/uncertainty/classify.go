// Package uncertainty classifies probability voxels and derives the
// case-level difficulty metrics from them.
package uncertainty

import (
	"edgeuncertainty/internal/models"
)

// ClassifyValue returns the class of a single probability. Only exact 0 and
// the open interval (0,1) are special-cased; anything else that is non-zero
// (exact 1, values above 1, negatives, NaN) is certain foreground.
func ClassifyValue(p float64) models.VoxelClass {
	switch {
	case p == 0:
		return models.Background
	case p > 0 && p < 1:
		return models.Uncertain
	default:
		return models.CertainForeground
	}
}

// Classify partitions every voxel of vol. The input is not modified.
func Classify(vol *models.ProbabilityVolume) *models.VoxelClassification {
	c := &models.VoxelClassification{
		Labels: make([]models.VoxelClass, len(vol.Data)),
	}
	for i, p := range vol.Data {
		class := ClassifyValue(p)
		c.Labels[i] = class
		switch class {
		case models.Background:
			c.BackgroundCount++
		case models.Uncertain:
			c.UncertainCount++
		default:
			c.CertainForegroundCount++
		}
	}
	return c
}

// UncertainValues returns the probabilities of the uncertain voxels in
// position order.
func UncertainValues(vol *models.ProbabilityVolume, c *models.VoxelClassification) []float64 {
	out := make([]float64, 0, c.UncertainCount)
	for i, l := range c.Labels {
		if l == models.Uncertain {
			out = append(out, vol.Data[i])
		}
	}
	return out
}
