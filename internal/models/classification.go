package models

// VoxelClass is the category a single voxel falls into.
type VoxelClass uint8

const (
	// Background voxels hold exactly 0
	Background VoxelClass = iota

	// CertainForeground voxels are non-zero and not strictly inside (0,1)
	CertainForeground

	// Uncertain voxels satisfy 0 < p < 1
	Uncertain
)

func (c VoxelClass) String() string {
	switch c {
	case Background:
		return "background"
	case CertainForeground:
		return "certain_foreground"
	case Uncertain:
		return "uncertain"
	default:
		return "unknown"
	}
}

// VoxelClassification partitions every voxel of one volume into exactly one
// class. Storing a label per position makes overlap and omission impossible.
type VoxelClassification struct {
	Labels []VoxelClass

	BackgroundCount        int
	CertainForegroundCount int
	UncertainCount         int
}

// Len returns the number of classified voxels.
func (c *VoxelClassification) Len() int { return len(c.Labels) }

// Count returns the cardinality of one class.
func (c *VoxelClassification) Count(class VoxelClass) int {
	switch class {
	case Background:
		return c.BackgroundCount
	case CertainForeground:
		return c.CertainForegroundCount
	case Uncertain:
		return c.UncertainCount
	}
	return 0
}

// Indices returns the flat voxel positions belonging to class, ascending.
func (c *VoxelClassification) Indices(class VoxelClass) []int {
	out := make([]int, 0, c.Count(class))
	for i, l := range c.Labels {
		if l == class {
			out = append(out, i)
		}
	}
	return out
}

// IsBinary reports whether the volume had no uncertain voxels at all.
func (c *VoxelClassification) IsBinary() bool { return c.UncertainCount == 0 }
