package uncertainty

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"edgeuncertainty/internal/models"
)

// MeanUncertainty is the average of 1-p over uncertain voxels. A volume
// without uncertain voxels scores 0.
func MeanUncertainty(vol *models.ProbabilityVolume, c *models.VoxelClassification) float64 {
	u := uncertainties(UncertainValues(vol, c))
	if len(u) == 0 {
		return 0
	}
	return stat.Mean(u, nil)
}

// SumUncertainty is count(p > 0) minus the sum of every voxel probability.
// It is taken over the whole volume, not just the uncertain set, so soft
// foreground anywhere in the case raises it while foreground at exactly 1
// contributes nothing.
func SumUncertainty(vol *models.ProbabilityVolume) float64 {
	var nonZero int
	for _, p := range vol.Data {
		if p > 0 {
			nonZero++
		}
	}
	return float64(nonZero) - floats.Sum(vol.Data)
}

// CountUncertain is the cardinality of the uncertain set.
func CountUncertain(c *models.VoxelClassification) int {
	return c.UncertainCount
}

// Compute builds the full metrics record for one case.
func Compute(caseID string, vol *models.ProbabilityVolume, c *models.VoxelClassification) (models.CaseMetrics, error) {
	if c.Len() != vol.Len() {
		return models.CaseMetrics{}, fmt.Errorf("%w: classification covers %d voxels, volume has %d",
			models.ErrShape, c.Len(), vol.Len())
	}

	m := models.CaseMetrics{
		CaseID:                  caseID,
		SumUncertainty:          SumUncertainty(vol),
		CountUncertain:          CountUncertain(c),
		TotalVoxels:             vol.Len(),
		BackgroundVoxels:        c.BackgroundCount,
		CertainForegroundVoxels: c.CertainForegroundCount,
		MinProbability:          0,
		MaxProbability:          1,
	}

	probs := UncertainValues(vol, c)
	if len(probs) == 0 {
		return m, nil
	}

	u := uncertainties(probs)
	mean, std := stat.PopMeanStdDev(u, nil)
	m.MeanUncertainty = mean
	m.StdUncertainty = std
	m.FuzzinessScore = floats.Sum(u)
	m.MinUncertainty = floats.Min(u)
	m.MeanProbability = stat.Mean(probs, nil)
	m.MinProbability = floats.Min(probs)
	m.MaxProbability = floats.Max(probs)

	return m, nil
}

func uncertainties(probs []float64) []float64 {
	u := make([]float64, len(probs))
	for i, p := range probs {
		u[i] = 1 - p
	}
	return u
}
