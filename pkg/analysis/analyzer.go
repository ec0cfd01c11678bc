// Package analysis drives the uncertainty pipeline over a batch of cases:
// every case is classified and scored, the population is ranked under each
// metric, and the selected most and least difficult cases are re-read and
// encoded into uncertainty masks.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"

	"edgeuncertainty/internal/logging"
	"edgeuncertainty/internal/models"
	"edgeuncertainty/pkg/encoding"
	"edgeuncertainty/pkg/nifti"
	"edgeuncertainty/pkg/ranking"
	"edgeuncertainty/pkg/uncertainty"
)

// VolumeLoader resolves a source path to a probability volume.
type VolumeLoader interface {
	Load(path string) (*models.ProbabilityVolume, error)
}

// LoaderFunc adapts a function to VolumeLoader.
type LoaderFunc func(path string) (*models.ProbabilityVolume, error)

// Load calls f.
func (f LoaderFunc) Load(path string) (*models.ProbabilityVolume, error) { return f(path) }

// NiftiLoader reads volumes from NIfTI files.
var NiftiLoader VolumeLoader = LoaderFunc(nifti.Read)

// MaskSink receives each generated mask. It may be called concurrently for
// different selected cases.
type MaskSink interface {
	WriteMask(sel SelectedCase, enc *encoding.Volume) error
}

// ProgressCallback reports progress through a stage.
type ProgressCallback func(completed, total int, message string)

// Params holds the batch configuration.
type Params struct {
	// Cases are the inputs in enumeration order
	Cases []models.CaseSource

	// NumWorkers bounds concurrent per-case work
	NumWorkers int

	// TopN is the selection size per metric and group
	TopN int

	// Policy controls the certain-foreground encoding. The zero Policy is
	// replaced by encoding.DefaultPolicy; to exclude certain foreground set
	// IncludeCertain false on a policy with a non-zero scale.
	Policy encoding.Policy

	// Loader defaults to NiftiLoader
	Loader VolumeLoader

	// Sink receives masks; nil skips persistence but still encodes
	Sink MaskSink

	Logger   *logging.Logger
	Progress ProgressCallback
}

// Analyzer runs the scoring, ranking, selection and encoding stages.
type Analyzer struct {
	params *Params
	log    *logging.Logger
}

// NewAnalyzer creates an analyzer, filling unset parameters with defaults.
func NewAnalyzer(params *Params) *Analyzer {
	if params.NumWorkers < 1 {
		params.NumWorkers = runtime.NumCPU()
	}
	if params.Loader == nil {
		params.Loader = NiftiLoader
	}
	if params.Policy == (encoding.Policy{}) {
		params.Policy = encoding.DefaultPolicy()
	}
	log := params.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Analyzer{params: params, log: log}
}

// Process runs the full pipeline. The returned report is never nil; on
// error it holds whatever was completed. Per-case failures do not produce
// an error, they are listed in the report. An empty scored population
// returns ranking.ErrEmptyPopulation.
func (a *Analyzer) Process(ctx context.Context) (*Report, error) {
	report := &Report{}

	a.log.Info("scoring cases", "cases", len(a.params.Cases), "workers", a.params.NumWorkers)
	report.Metrics, report.ScoreFailures = a.scoreCases(ctx)
	a.log.Info("scoring finished", "succeeded", report.Succeeded(), "failed", report.Failed())

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("scoring interrupted: %w", err)
	}
	if len(report.Metrics) == 0 {
		return report, ranking.ErrEmptyPopulation
	}

	r, err := ranking.RankAll(report.Metrics)
	if err != nil {
		return report, fmt.Errorf("ranking cases: %w", err)
	}
	report.Ranking = r
	report.Selections = ranking.SelectAll(r, a.params.TopN)

	for _, sel := range report.Selections {
		a.log.Debug("selected cases",
			"metric", sel.Metric.String(),
			"most", ranking.CaseIDs(sel.MostDifficult),
			"least", ranking.CaseIDs(sel.LeastDifficult),
			"non_zero_only", sel.NonZeroOnly)
	}

	report.Encoded, report.EncodeFailures = a.encodeSelected(ctx, report.SelectedCases())
	a.log.Info("encoding finished", "masks", len(report.Encoded), "failed", len(report.EncodeFailures))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("encoding interrupted: %w", err)
	}
	return report, nil
}

type scoreResult struct {
	metrics models.CaseMetrics
	err     error
}

// scoreCases classifies and scores every case. It returns only after every
// case has either succeeded or failed.
func (a *Analyzer) scoreCases(ctx context.Context) ([]models.CaseMetrics, []CaseFailure) {
	cases := a.params.Cases
	results := make([]scoreResult, len(cases))

	forEach(ctx, a.params.NumWorkers, len(cases),
		func(i int) {
			m, err := a.scoreCase(cases[i])
			results[i] = scoreResult{metrics: m, err: err}
		},
		func(i int) { results[i] = scoreResult{err: ctx.Err()} },
		func(completed int) { a.progress(completed, len(cases), "scoring cases") },
	)

	var (
		metrics  []models.CaseMetrics
		failures []CaseFailure
	)
	for i, res := range results {
		if res.err != nil {
			f := CaseFailure{CaseID: cases[i].ID, Path: cases[i].Path, Stage: StageScore, Err: res.err}
			a.log.Err(res.err, "case failed", "case", f.CaseID, "stage", string(f.Stage))
			failures = append(failures, f)
			continue
		}
		metrics = append(metrics, res.metrics)
	}
	return metrics, failures
}

func (a *Analyzer) scoreCase(src models.CaseSource) (m models.CaseMetrics, err error) {
	defer recoverCase(&err)

	vol, err := a.params.Loader.Load(src.Path)
	if err != nil {
		return m, err
	}
	c := uncertainty.Classify(vol)
	m, err = uncertainty.Compute(src.ID, vol, c)
	if err != nil {
		return m, err
	}
	m.Path = src.Path

	if m.IsBinary() {
		a.log.Debug("no uncertain voxels", "case", src.ID)
	}
	return m, nil
}

type encodeResult struct {
	encoded EncodedCase
	err     error
}

// encodeSelected re-reads and encodes every selected case.
func (a *Analyzer) encodeSelected(ctx context.Context, selected []SelectedCase) ([]EncodedCase, []CaseFailure) {
	results := make([]encodeResult, len(selected))

	forEach(ctx, a.params.NumWorkers, len(selected),
		func(i int) {
			enc, err := a.encodeCase(selected[i])
			results[i] = encodeResult{encoded: enc, err: err}
		},
		func(i int) { results[i] = encodeResult{err: ctx.Err()} },
		func(completed int) { a.progress(completed, len(selected), "encoding selected cases") },
	)

	var (
		encoded  []EncodedCase
		failures []CaseFailure
	)
	for i, res := range results {
		sel := selected[i]
		if res.err != nil {
			f := CaseFailure{
				CaseID: sel.CaseID,
				Path:   sel.Path,
				Stage:  StageEncode,
				Metric: sel.Metric,
				Group:  sel.Group,
				Err:    res.err,
			}
			a.log.Err(res.err, "mask generation failed",
				"case", sel.CaseID, "metric", sel.Metric.String(), "group", string(sel.Group))
			failures = append(failures, f)
			continue
		}
		encoded = append(encoded, res.encoded)
	}
	return encoded, failures
}

func (a *Analyzer) encodeCase(sel SelectedCase) (out EncodedCase, err error) {
	defer recoverCase(&err)

	vol, err := a.params.Loader.Load(sel.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, fmt.Errorf("%w: %s", ErrMissingSource, sel.Path)
		}
		return out, err
	}

	c := uncertainty.Classify(vol)
	m, err := uncertainty.Compute(sel.CaseID, vol, c)
	if err != nil {
		return out, err
	}
	enc, err := encoding.Encode(vol, c, m, a.params.Policy)
	if err != nil {
		return out, err
	}

	if a.params.Sink != nil {
		if err := a.params.Sink.WriteMask(sel, enc); err != nil {
			return out, fmt.Errorf("writing mask: %w", err)
		}
	}

	return EncodedCase{
		SelectedCase:  sel,
		Summary:       enc.Summary(),
		MaxContinuous: enc.MaxContinuous,
	}, nil
}

func (a *Analyzer) progress(completed, total int, message string) {
	if a.params.Progress != nil {
		a.params.Progress(completed, total, message)
	}
}

// recoverCase turns a panic inside per-case work into that case's error.
func recoverCase(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}
