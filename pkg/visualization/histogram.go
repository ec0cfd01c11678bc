// Package visualization renders static artifacts for selected cases:
// histograms of the continuous uncertainty values and slice previews of
// the discrete mask.
package visualization

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"edgeuncertainty/pkg/encoding"
)

// ErrNoValues is returned when there is nothing to plot.
var ErrNoValues = errors.New("no uncertainty values to plot")

// HistogramConfig fixes the output of a HistogramRenderer.
type HistogramConfig struct {
	Bins   int
	Width  vg.Length
	Height vg.Length

	// Format is the file extension passed to plot.Save
	Format string
}

// DefaultHistogramConfig returns a 50-bin 8x5 inch PNG.
func DefaultHistogramConfig() HistogramConfig {
	return HistogramConfig{
		Bins:   50,
		Width:  8 * vg.Inch,
		Height: 5 * vg.Inch,
		Format: "png",
	}
}

// HistogramRenderer draws histograms of continuous uncertainty values. It
// holds no mutable state and is safe for concurrent use.
type HistogramRenderer struct {
	cfg HistogramConfig
}

// NewHistogramRenderer creates a renderer, filling zero fields from the defaults.
func NewHistogramRenderer(cfg HistogramConfig) *HistogramRenderer {
	def := DefaultHistogramConfig()
	if cfg.Bins < 1 {
		cfg.Bins = def.Bins
	}
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	return &HistogramRenderer{cfg: cfg}
}

// Filename returns base with the configured image extension.
func (r *HistogramRenderer) Filename(base string) string {
	return base + "." + r.cfg.Format
}

// Render plots values and annotates the plot with summary, marking the
// certain-foreground value and the mean.
func (r *HistogramRenderer) Render(values []float64, summary encoding.Summary, title, path string) error {
	if len(values) == 0 {
		return ErrNoValues
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Uncertainty (1 - p)"
	p.Y.Label.Text = "Voxel count"
	p.Legend.Top = true

	h, err := r.histogram(values)
	if err != nil {
		return err
	}
	h.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	h.LineStyle.Width = vg.Points(0.5)
	p.Add(h)
	p.Legend.Add(fmt.Sprintf("n=%d min=%.4f max=%.4f", summary.Count, summary.Min, summary.Max), h)

	var top float64
	for _, b := range h.Bins {
		if b.Weight > top {
			top = b.Weight
		}
	}

	mean, err := verticalLine(summary.Mean, top, color.RGBA{R: 34, G: 139, B: 34, A: 255})
	if err != nil {
		return err
	}
	p.Add(mean)
	p.Legend.Add(fmt.Sprintf("mean=%.4f", summary.Mean), mean)

	if summary.HasCertain {
		certain, err := verticalLine(summary.CertainValue, top, color.RGBA{R: 220, G: 20, B: 60, A: 255})
		if err != nil {
			return err
		}
		p.Add(certain)
		p.Legend.Add(fmt.Sprintf("certain value=%.4f", summary.CertainValue), certain)
	}

	if err := p.Save(r.cfg.Width, r.cfg.Height, path); err != nil {
		return fmt.Errorf("saving histogram: %w", err)
	}
	return nil
}

// histogram bins values. A single repeated value gets one bin of fixed
// width around it.
func (r *HistogramRenderer) histogram(values []float64) (*plotter.Histogram, error) {
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		const width = 0.01
		return &plotter.Histogram{
			Bins:      []plotter.HistogramBin{{Min: lo - width/2, Max: lo + width/2, Weight: float64(len(values))}},
			Width:     width,
			LineStyle: plotter.DefaultLineStyle,
		}, nil
	}
	h, err := plotter.NewHist(plotter.Values(values), r.cfg.Bins)
	if err != nil {
		return nil, fmt.Errorf("building histogram: %w", err)
	}
	return h, nil
}

func verticalLine(x, top float64, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}})
	if err != nil {
		return nil, fmt.Errorf("building marker: %w", err)
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(1.5)
	l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	return l, nil
}
