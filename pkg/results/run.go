// Package results persists what an analysis run produced: CSV tables, a
// text summary, the mask legend files, the mask volumes themselves and an
// optional SQLite run store.
package results

import (
	"time"

	"edgeuncertainty/pkg/encoding"
)

// File names written at the top of the output directory.
const (
	MetricsTableFile  = "EdgeUncertaintyMasks.csv"
	CombinedTableFile = "combined_ranking.csv"
	SummaryFile       = "EdgeUncertaintyMasks_summary.txt"
	ColormapFile      = "uncertainty_colormap.txt"
	MaskInfoFile      = "uncertainty_masks_info.txt"
)

// RunInfo describes the parameters of one invocation.
type RunInfo struct {
	// RunID is filled by Store.SaveRun when empty
	RunID string

	InputDir   string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt time.Time

	// TotalCases is the number of cases enumerated, scored or not
	TotalCases int
	TopN       int
	NumWorkers int
	Policy     encoding.Policy
}

// Elapsed returns the wall time of the run.
func (r RunInfo) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
