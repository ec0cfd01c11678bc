package results

import (
	"fmt"
	"io"
	"os"
	"strings"

	"edgeuncertainty/internal/models"
	"edgeuncertainty/pkg/analysis"
	"edgeuncertainty/pkg/encoding"
)

// FormatColormap renders the discrete legend as an ITK-SNAP label
// description file.
func FormatColormap(w io.Writer) error {
	var b strings.Builder
	b.WriteString("################################################\n")
	b.WriteString("# ITK-SnAP Label Description File\n")
	b.WriteString("# Uncertainty mask colormap\n")
	b.WriteString("# IDX   -R-  -G-  -B-  -A--  VIS MSH  LABEL\n")
	b.WriteString("################################################\n")
	for _, e := range encoding.Legend {
		vis := 0
		if e.Visible {
			vis = 1
		}
		fmt.Fprintf(&b, "%5d %5d %4d %4d %8.2f %2d %2d    \"%s\"\n",
			e.Value, e.R, e.G, e.B, e.Alpha, vis, vis, e.Label)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteColormap writes the ITK-SNAP colormap to path.
func WriteColormap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := FormatColormap(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FormatMaskInfo describes the two mask encodings and how many masks of
// each kind the run produced.
func FormatMaskInfo(w io.Writer, policy encoding.Policy, report *analysis.Report) error {
	var b strings.Builder
	b.WriteString("UNCERTAINTY MASKS\n")
	b.WriteString(strings.Repeat("=", 72) + "\n\n")

	b.WriteString("<case>_uncertainty_mask_float.nii.gz (float32)\n")
	b.WriteString("  background (p == 0)        -> 0\n")
	b.WriteString("  uncertain (0 < p < 1)      -> 1 - p\n")
	if policy.IncludeCertain {
		fmt.Fprintf(&b, "  certain foreground         -> %.4f x smallest uncertainty of the case\n", policy.CertainScale)
		fmt.Fprintf(&b, "                                (%.4f when the case has no uncertain voxels)\n", policy.FallbackValue)
	} else {
		b.WriteString("  certain foreground         -> 0 (excluded)\n")
	}
	b.WriteString("\n")

	b.WriteString("<case>_uncertainty_mask_uint8.nii.gz (uint8)\n")
	b.WriteString("  background                 -> 0\n")
	fmt.Fprintf(&b, "  any other encoded voxel    -> clip(round(c / max(c) x 254) + 1, %d, %d)\n",
		encoding.DiscreteMin, encoding.DiscreteMax)
	fmt.Fprintf(&b, "  colours: %s (ITK-SNAP label description)\n\n", ColormapFile)

	b.WriteString("Masks written\n")
	counts := make(map[models.Metric]map[analysis.Group]int)
	for _, e := range report.Encoded {
		if counts[e.Metric] == nil {
			counts[e.Metric] = make(map[analysis.Group]int)
		}
		counts[e.Metric][e.Group]++
	}
	for _, m := range models.AllMetrics {
		fmt.Fprintf(&b, "  %-18s most difficult %3d   least difficult %3d\n",
			m, counts[m][analysis.MostDifficult], counts[m][analysis.LeastDifficult])
	}
	if n := len(report.EncodeFailures); n > 0 {
		fmt.Fprintf(&b, "  failed: %d\n", n)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMaskInfo writes the mask description file to path.
func WriteMaskInfo(path string, policy encoding.Policy, report *analysis.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := FormatMaskInfo(f, policy, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
