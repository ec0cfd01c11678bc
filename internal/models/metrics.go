package models

// CaseMetrics holds the case-level difficulty signals and descriptive
// statistics for one probability volume. Values are computed once per run.
type CaseMetrics struct {
	CaseID string
	Path   string

	// MeanUncertainty is mean(1-p) over uncertain voxels, 0 when there are none
	MeanUncertainty float64

	// SumUncertainty is count(p > 0) - sum(p) over the whole volume
	SumUncertainty float64

	// CountUncertain is the number of voxels with 0 < p < 1
	CountUncertain int

	TotalVoxels             int
	BackgroundVoxels        int
	CertainForegroundVoxels int

	// FuzzinessScore is sum(1-p) over uncertain voxels
	FuzzinessScore float64

	// StdUncertainty is the population standard deviation of 1-p over uncertain voxels
	StdUncertainty float64

	// Probability statistics over uncertain voxels. With no uncertain voxels
	// MinProbability is 0 and MaxProbability is 1.
	MeanProbability float64
	MinProbability  float64
	MaxProbability  float64

	// MinUncertainty is min(1-p) over uncertain voxels, 0 when there are none
	MinUncertainty float64
}

// IsBinary reports whether the case had no uncertain voxels.
func (m CaseMetrics) IsBinary() bool { return m.CountUncertain == 0 }

// Metric selects one of the three difficulty signals.
type Metric int

const (
	MeanUncertainty Metric = iota
	SumUncertainty
	CountUncertain
)

// AllMetrics lists every difficulty metric in report order.
var AllMetrics = []Metric{MeanUncertainty, SumUncertainty, CountUncertain}

// String returns the column name used in tables and directory names.
func (m Metric) String() string {
	switch m {
	case MeanUncertainty:
		return "mean_uncertainty"
	case SumUncertainty:
		return "sum_uncertainty"
	case CountUncertain:
		return "count_uncertain"
	default:
		return "unknown_metric"
	}
}

// Value extracts the metric from a case record.
func (m Metric) Value(c CaseMetrics) float64 {
	switch m {
	case MeanUncertainty:
		return c.MeanUncertainty
	case SumUncertainty:
		return c.SumUncertainty
	case CountUncertain:
		return float64(c.CountUncertain)
	default:
		return 0
	}
}

// ParseMetric maps a column name back to its Metric.
func ParseMetric(s string) (Metric, bool) {
	for _, m := range AllMetrics {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}
