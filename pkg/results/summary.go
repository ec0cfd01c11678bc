package results

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"edgeuncertainty/internal/models"
	"edgeuncertainty/pkg/analysis"
	"edgeuncertainty/pkg/ranking"
)

// ReportTopCases is how many cases the summary lists at each end of a ranking.
const ReportTopCases = 10

// MetricStats describes the distribution of one metric over the population.
type MetricStats struct {
	Metric models.Metric
	Mean   float64
	Median float64
	Std    float64
	Min    float64
	Max    float64
}

// Describe computes distribution statistics of metric over cases. Std is
// the sample standard deviation and is 0 for a single case.
func Describe(cases []models.CaseMetrics, metric models.Metric) MetricStats {
	s := MetricStats{Metric: metric}
	if len(cases) == 0 {
		return s
	}

	vals := make([]float64, len(cases))
	for i, c := range cases {
		vals[i] = metric.Value(c)
	}
	sort.Float64s(vals)

	s.Mean = stat.Mean(vals, nil)
	s.Min = floats.Min(vals)
	s.Max = floats.Max(vals)
	if len(vals) > 1 {
		s.Std = stat.StdDev(vals, nil)
	}
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		s.Median = vals[mid]
	} else {
		s.Median = (vals[mid-1] + vals[mid]) / 2
	}
	return s
}

// BinaryCount returns how many cases have no uncertain voxels.
func BinaryCount(cases []models.CaseMetrics) int {
	n := 0
	for _, c := range cases {
		if c.IsBinary() {
			n++
		}
	}
	return n
}

// WriteSummary writes the human readable run summary to path.
func WriteSummary(path string, info RunInfo, report *analysis.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := FormatSummary(w, info, report); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FormatSummary renders the run summary onto w.
func FormatSummary(w io.Writer, info RunInfo, report *analysis.Report) error {
	rule := strings.Repeat("=", 72)
	var b strings.Builder

	fmt.Fprintln(&b, "EDGE UNCERTAINTY ANALYSIS SUMMARY")
	fmt.Fprintln(&b, rule)
	if info.RunID != "" {
		fmt.Fprintf(&b, "Run ID:            %s\n", info.RunID)
	}
	fmt.Fprintf(&b, "Input directory:   %s\n", info.InputDir)
	fmt.Fprintf(&b, "Output directory:  %s\n", info.OutputDir)
	if !info.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Started:           %s\n", info.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if d := info.Elapsed(); d > 0 {
		fmt.Fprintf(&b, "Elapsed:           %s\n", d.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "Workers:           %d\n", info.NumWorkers)
	fmt.Fprintf(&b, "Cases per group:   %d\n", info.TopN)
	fmt.Fprintf(&b, "Include certain:   %t\n", info.Policy.IncludeCertain)
	if info.Policy.IncludeCertain {
		fmt.Fprintf(&b, "Certain value:     %.4f x min uncertainty (fallback %.4f)\n",
			info.Policy.CertainScale, info.Policy.FallbackValue)
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Cases found:       %d\n", info.TotalCases)
	fmt.Fprintf(&b, "Cases processed:   %d\n", report.Succeeded())
	fmt.Fprintf(&b, "Cases failed:      %d\n", report.Failed())
	for _, f := range report.ScoreFailures {
		fmt.Fprintf(&b, "  - %s: %v\n", f.CaseID, f.Err)
	}

	binary := BinaryCount(report.Metrics)
	fmt.Fprintf(&b, "Binary masks:      %d\n", binary)
	fmt.Fprintf(&b, "Probability masks: %d\n", report.Succeeded()-binary)
	if report.Succeeded() > 0 && binary == report.Succeeded() {
		fmt.Fprintln(&b, "WARNING: every case is a binary mask; uncertainty metrics are all zero and rankings are not informative.")
	}

	for _, m := range models.AllMetrics {
		s := Describe(report.Metrics, m)
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, rule)
		fmt.Fprintf(&b, "%s\n", strings.ToUpper(m.String()))
		fmt.Fprintln(&b, rule)
		fmt.Fprintf(&b, "mean %.6f  median %.6f  std %.6f  min %.6f  max %.6f\n",
			s.Mean, s.Median, s.Std, s.Min, s.Max)

		if report.Ranking == nil {
			continue
		}
		t := report.Ranking.Table(m)
		if t == nil {
			continue
		}
		writeRows(&b, fmt.Sprintf("Top %d most difficult:", ReportTopCases), headRows(t.Rows, ReportTopCases))
		writeRows(&b, fmt.Sprintf("Top %d least difficult:", ReportTopCases), tailRows(t.Rows, ReportTopCases))
	}

	if len(report.EncodeFailures) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Mask generation failures: %d\n", len(report.EncodeFailures))
		for _, f := range report.EncodeFailures {
			fmt.Fprintf(&b, "  - %v\n", f)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRows(b *strings.Builder, title string, rows []ranking.Row) {
	fmt.Fprintln(b, title)
	for _, r := range rows {
		fmt.Fprintf(b, "  %4d  %-32s %.6f\n", r.Rank, r.Case.CaseID, r.Value)
	}
}

func headRows(rows []ranking.Row, n int) []ranking.Row {
	if n > len(rows) {
		n = len(rows)
	}
	return rows[:n]
}

func tailRows(rows []ranking.Row, n int) []ranking.Row {
	if n > len(rows) {
		n = len(rows)
	}
	return rows[len(rows)-n:]
}
