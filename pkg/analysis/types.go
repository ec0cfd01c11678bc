package analysis

import (
	"errors"
	"fmt"

	"edgeuncertainty/internal/models"
	"edgeuncertainty/pkg/encoding"
	"edgeuncertainty/pkg/ranking"
)

// ErrMissingSource marks a selected case whose volume could not be found
// at encode time.
var ErrMissingSource = errors.New("source volume not found for selected case")

// Stage names the pipeline step a failure happened in.
type Stage string

const (
	StageScore  Stage = "score"
	StageEncode Stage = "encode"
)

// Group is one side of a selection.
type Group string

const (
	MostDifficult  Group = "most_difficult"
	LeastDifficult Group = "least_difficult"
)

// CaseFailure records why one case dropped out of a stage.
type CaseFailure struct {
	CaseID string
	Path   string
	Stage  Stage

	// Metric and Group are set for encode failures
	Metric models.Metric
	Group  Group

	Err error
}

func (f CaseFailure) Error() string {
	if f.Stage == StageEncode {
		return fmt.Sprintf("%s %s/%s %s: %v", f.Stage, f.Metric, f.Group, f.CaseID, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Stage, f.CaseID, f.Err)
}

func (f CaseFailure) Unwrap() error { return f.Err }

// SelectedCase is one case picked for mask generation.
type SelectedCase struct {
	Metric models.Metric
	Group  Group

	// Rank is the case's rank in the metric's table
	Rank  int
	Value float64

	CaseID string
	Path   string
}

// EncodedCase summarises a mask that was generated and handed to the sink.
type EncodedCase struct {
	SelectedCase

	Summary       encoding.Summary
	MaxContinuous float64
}

// Report collects everything a run produced, including partial results.
type Report struct {
	// Metrics holds successfully scored cases in enumeration order
	Metrics []models.CaseMetrics

	Ranking    *ranking.Ranking
	Selections []ranking.Selection

	Encoded []EncodedCase

	// ScoreFailures and EncodeFailures are kept in enumeration order
	ScoreFailures  []CaseFailure
	EncodeFailures []CaseFailure
}

// Succeeded is the number of cases scored.
func (r *Report) Succeeded() int { return len(r.Metrics) }

// Failed is the number of cases that could not be scored.
func (r *Report) Failed() int { return len(r.ScoreFailures) }

// FailedIDs lists the identifiers of cases that could not be scored.
func (r *Report) FailedIDs() []string {
	ids := make([]string, len(r.ScoreFailures))
	for i, f := range r.ScoreFailures {
		ids[i] = f.CaseID
	}
	return ids
}

// SelectedCases flattens the selections into the order they are encoded.
func (r *Report) SelectedCases() []SelectedCase {
	var out []SelectedCase
	for _, sel := range r.Selections {
		for _, g := range []struct {
			group Group
			rows  []ranking.Row
		}{
			{MostDifficult, sel.MostDifficult},
			{LeastDifficult, sel.LeastDifficult},
		} {
			for _, row := range g.rows {
				out = append(out, SelectedCase{
					Metric: sel.Metric,
					Group:  g.group,
					Rank:   row.Rank,
					Value:  row.Value,
					CaseID: row.Case.CaseID,
					Path:   row.Case.Path,
				})
			}
		}
	}
	return out
}
