package results

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"edgeuncertainty/internal/logging"
	"edgeuncertainty/internal/models"
	"edgeuncertainty/pkg/analysis"
	"edgeuncertainty/pkg/encoding"
	"edgeuncertainty/pkg/nifti"
	"edgeuncertainty/pkg/visualization"
)

// MaskWriterOptions configures a MaskWriter.
type MaskWriterOptions struct {
	OutputDir string

	// Histograms renders a histogram next to each mask when set
	Histograms *visualization.HistogramRenderer

	// Previews writes mid-volume slices of the discrete mask
	Previews bool

	Logger *logging.Logger
}

// MaskWriter writes encoded masks as NIfTI volumes under
// <out>/<metric>/<group>_uncertainty_masks. It only touches files named
// after the case and is safe for concurrent use.
type MaskWriter struct {
	opts MaskWriterOptions
}

// NewMaskWriter creates a MaskWriter.
func NewMaskWriter(opts MaskWriterOptions) *MaskWriter {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &MaskWriter{opts: opts}
}

// GroupDir returns the directory masks of metric/group are written to.
func (w *MaskWriter) GroupDir(metric models.Metric, group analysis.Group) string {
	return filepath.Join(w.opts.OutputDir, metric.String(), string(group)+"_uncertainty_masks")
}

// FloatMaskPath returns the path of the continuous mask of a selected case.
func (w *MaskWriter) FloatMaskPath(sel analysis.SelectedCase) string {
	return filepath.Join(w.GroupDir(sel.Metric, sel.Group), sel.CaseID+"_uncertainty_mask_float.nii.gz")
}

// DiscreteMaskPath returns the path of the uint8 mask of a selected case.
func (w *MaskWriter) DiscreteMaskPath(sel analysis.SelectedCase) string {
	return filepath.Join(w.GroupDir(sel.Metric, sel.Group), sel.CaseID+"_uncertainty_mask_uint8.nii.gz")
}

// WriteMask implements analysis.MaskSink. Histogram and preview failures
// are logged and do not fail the mask.
func (w *MaskWriter) WriteMask(sel analysis.SelectedCase, enc *encoding.Volume) error {
	dir := w.GroupDir(sel.Metric, sel.Group)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	if err := nifti.Write(w.FloatMaskPath(sel), enc.Meta, enc.Dims, nifti.Float32, enc.Continuous); err != nil {
		return fmt.Errorf("writing float mask: %w", err)
	}
	if err := nifti.Write(w.DiscreteMaskPath(sel), enc.Meta, enc.Dims, nifti.Uint8, enc.DiscreteAsFloat()); err != nil {
		return fmt.Errorf("writing uint8 mask: %w", err)
	}

	log := w.opts.Logger
	if r := w.opts.Histograms; r != nil {
		path := filepath.Join(dir, r.Filename(sel.CaseID+"_histogram"))
		title := fmt.Sprintf("%s (%s rank %d)", sel.CaseID, sel.Metric, sel.Rank)
		err := r.Render(enc.NonZeroValues(), enc.Summary(), title, path)
		switch {
		case errors.Is(err, visualization.ErrNoValues):
			log.Debug("empty mask, no histogram", "case", sel.CaseID)
		case err != nil:
			log.Warn("histogram failed", "case", sel.CaseID, "error", err)
		}
	}

	if w.opts.Previews {
		viewer := visualization.NewViewer(enc.DiscreteAsFloat(), enc.Dims, encoding.DiscreteMax)
		if _, err := viewer.SaveMidSlices(filepath.Join(dir, "previews"), sel.CaseID); err != nil {
			log.Warn("preview failed", "case", sel.CaseID, "error", err)
		}
	}

	return nil
}
