// Package encoding turns a classified probability volume into the two
// per-voxel uncertainty encodings used by downstream viewers: a continuous
// float map and a discrete map in [0,255] where 0 marks background only.
package encoding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"edgeuncertainty/internal/models"
)

const (
	// DefaultCertainScale multiplies the smallest boundary uncertainty to
	// obtain the value painted on certain foreground
	DefaultCertainScale = 0.95

	// DefaultFallbackValue is painted on certain foreground when a case has
	// no uncertain voxels
	DefaultFallbackValue = 0.01

	// DiscreteMin and DiscreteMax bound every non-background discrete value
	DiscreteMin = 1
	DiscreteMax = 255

	discreteSteps = DiscreteMax - DiscreteMin
)

// Policy controls how certain-foreground voxels are encoded.
type Policy struct {
	// IncludeCertain paints certain foreground with the certain value.
	// When false those voxels encode as 0, like background.
	IncludeCertain bool

	CertainScale  float64
	FallbackValue float64
}

// DefaultPolicy includes certain foreground at 0.95 x the minimum boundary
// uncertainty, or 0.01 for binary masks.
func DefaultPolicy() Policy {
	return Policy{
		IncludeCertain: true,
		CertainScale:   DefaultCertainScale,
		FallbackValue:  DefaultFallbackValue,
	}
}

// CertainValue returns the continuous value for certain-foreground voxels
// of a case.
func (p Policy) CertainValue(m models.CaseMetrics) float64 {
	if m.CountUncertain > 0 {
		return p.CertainScale * m.MinUncertainty
	}
	return p.FallbackValue
}

// Volume is the pair of derived encodings for one case. Both arrays have the
// source's shape and carry a copy of its metadata.
type Volume struct {
	CaseID string

	Continuous []float64
	Discrete   []uint8

	Dims []int
	Meta models.Metadata

	// CertainValue is the value painted on certain foreground, or 0 when the
	// policy excludes it
	CertainValue float64

	// CertainVoxels is the number of voxels that received CertainValue
	CertainVoxels int

	// MaxContinuous is the largest continuous value, the discrete scale reference
	MaxContinuous float64
}

// Encode derives both encodings from vol. metrics must belong to the same
// case; only its uncertain count and minimum uncertainty are read.
func Encode(vol *models.ProbabilityVolume, c *models.VoxelClassification, metrics models.CaseMetrics, policy Policy) (*Volume, error) {
	if c.Len() != vol.Len() {
		return nil, fmt.Errorf("%w: classification covers %d voxels, volume has %d",
			models.ErrShape, c.Len(), vol.Len())
	}

	enc := &Volume{
		CaseID:     metrics.CaseID,
		Continuous: make([]float64, vol.Len()),
		Discrete:   make([]uint8, vol.Len()),
		Dims:       append([]int(nil), vol.Dims...),
		Meta:       vol.Meta.Clone(),
	}
	if policy.IncludeCertain {
		enc.CertainValue = policy.CertainValue(metrics)
	}

	for i, l := range c.Labels {
		switch l {
		case models.Uncertain:
			enc.Continuous[i] = 1 - vol.Data[i]
		case models.CertainForeground:
			if policy.IncludeCertain {
				enc.Continuous[i] = enc.CertainValue
				enc.CertainVoxels++
			}
		}
	}

	for _, v := range enc.Continuous {
		if v > enc.MaxContinuous {
			enc.MaxContinuous = v
		}
	}
	if enc.MaxContinuous == 0 {
		return enc, nil
	}

	for i, v := range enc.Continuous {
		if v != 0 {
			enc.Discrete[i] = Discretize(v, enc.MaxContinuous)
		}
	}
	return enc, nil
}

// Discretize maps a non-zero continuous value into [1,255] relative to max.
func Discretize(v, max float64) uint8 {
	d := math.Round(v/max*discreteSteps) + DiscreteMin
	if d < DiscreteMin || math.IsNaN(d) {
		d = DiscreteMin
	}
	if d > DiscreteMax {
		d = DiscreteMax
	}
	return uint8(d)
}

// NonZeroValues returns the non-zero continuous values in position order.
func (e *Volume) NonZeroValues() []float64 {
	out := make([]float64, 0, len(e.Continuous))
	for _, v := range e.Continuous {
		if v != 0 {
			out = append(out, v)
		}
	}
	return out
}

// NonZeroIndices returns the positions holding a non-zero continuous value.
func (e *Volume) NonZeroIndices() []int {
	out := make([]int, 0, len(e.Continuous))
	for i, v := range e.Continuous {
		if v != 0 {
			out = append(out, i)
		}
	}
	return out
}

// Summary annotates a histogram of the non-zero continuous values.
type Summary struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64

	// HasCertain is set when certain foreground was painted with CertainValue
	HasCertain   bool
	CertainValue float64
}

// Summary computes the histogram annotation for e.
func (e *Volume) Summary() Summary {
	vals := e.NonZeroValues()
	s := Summary{
		Count:        len(vals),
		HasCertain:   e.CertainVoxels > 0,
		CertainValue: e.CertainValue,
	}
	if len(vals) == 0 {
		return s
	}
	s.Min = floats.Min(vals)
	s.Max = floats.Max(vals)
	s.Mean = stat.Mean(vals, nil)
	return s
}

// DiscreteAsFloat returns the discrete map widened to float64, for viewers
// that operate on float volumes.
func (e *Volume) DiscreteAsFloat() []float64 {
	out := make([]float64, len(e.Discrete))
	for i, d := range e.Discrete {
		out[i] = float64(d)
	}
	return out
}
