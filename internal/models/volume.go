package models

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a volume's dimensions do not match its data.
var ErrShape = errors.New("volume shape mismatch")

// Metadata is the spatial header block of a source volume. It is opaque to
// the scoring engine: derived volumes carry a copy of it unchanged so that
// affine, orientation and voxel size survive encoding.
type Metadata struct {
	// Raw is the encoded header as read from the source file
	Raw []byte

	// Extensions holds any header extension bytes that follow Raw
	Extensions []byte

	// BigEndian records the byte order of the source file
	BigEndian bool
}

// Clone returns a deep copy so derived volumes never alias the source header.
func (m Metadata) Clone() Metadata {
	out := Metadata{BigEndian: m.BigEndian}
	if m.Raw != nil {
		out.Raw = append([]byte(nil), m.Raw...)
	}
	if m.Extensions != nil {
		out.Extensions = append([]byte(nil), m.Extensions...)
	}
	return out
}

// ProbabilityVolume is an n-dimensional array of per-voxel foreground
// likelihoods stored as a flat slice in the source file's order (first
// dimension fastest).
type ProbabilityVolume struct {
	// Data holds one probability per voxel
	Data []float64

	// Dims are the array extents, e.g. [x, y, z]
	Dims []int

	// Meta is the spatial metadata of the source
	Meta Metadata
}

// NewProbabilityVolume validates that dims describe len(data) voxels.
func NewProbabilityVolume(data []float64, dims []int, meta Metadata) (*ProbabilityVolume, error) {
	if n := VoxelCount(dims); n != len(data) {
		return nil, fmt.Errorf("%w: dims %v describe %d voxels, data has %d", ErrShape, dims, n, len(data))
	}
	return &ProbabilityVolume{
		Data: data,
		Dims: append([]int(nil), dims...),
		Meta: meta,
	}, nil
}

// Len returns the number of voxels.
func (v *ProbabilityVolume) Len() int { return len(v.Data) }

// VoxelCount is the product of dims. An empty dims slice describes no voxels.
func VoxelCount(dims []int) int {
	if len(dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range dims {
		if d < 0 {
			return -1
		}
		n *= d
	}
	return n
}

// CaseSource ties a case identifier to the path of its probability volume.
// Batches are ordered slices of CaseSource; that order is the enumeration
// order used to break ranking ties.
type CaseSource struct {
	ID   string
	Path string
}
