package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"edgeuncertainty/internal/models"
	"edgeuncertainty/pkg/ranking"
)

var metricsHeader = []string{
	"difficulty_rank", "case_id", "path",
	"mean_uncertainty", "sum_uncertainty", "count_uncertain",
	"total_voxels", "background_voxels", "certain_foreground_voxels",
	"fuzziness_score", "std_uncertainty",
	"mean_probability", "min_probability", "max_probability",
	"is_binary",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteMetricsTable writes one row per case in mean-uncertainty rank order,
// with the rank as difficulty_rank.
func WriteMetricsTable(path string, r *ranking.Ranking) error {
	t := r.Table(models.MeanUncertainty)
	if t == nil {
		return fmt.Errorf("ranking has no %s table", models.MeanUncertainty)
	}

	rows := make([][]string, 0, t.Len())
	for _, row := range t.Rows {
		c := row.Case
		rows = append(rows, []string{
			strconv.Itoa(row.Rank), c.CaseID, c.Path,
			formatFloat(c.MeanUncertainty), formatFloat(c.SumUncertainty), strconv.Itoa(c.CountUncertain),
			strconv.Itoa(c.TotalVoxels), strconv.Itoa(c.BackgroundVoxels), strconv.Itoa(c.CertainForegroundVoxels),
			formatFloat(c.FuzzinessScore), formatFloat(c.StdUncertainty),
			formatFloat(c.MeanProbability), formatFloat(c.MinProbability), formatFloat(c.MaxProbability),
			strconv.FormatBool(c.IsBinary()),
		})
	}
	return writeCSV(path, metricsHeader, rows)
}

// WriteRankedTable writes a single-metric ranking as rank, case_id, value.
func WriteRankedTable(path string, t *ranking.Table) error {
	rows := make([][]string, 0, t.Len())
	for _, row := range t.Rows {
		rows = append(rows, []string{strconv.Itoa(row.Rank), row.Case.CaseID, formatFloat(row.Value)})
	}
	return writeCSV(path, []string{"rank", "case_id", t.Metric.String()}, rows)
}

// WriteCombinedTable writes the per-case ranks under every metric, in
// enumeration order.
func WriteCombinedTable(path string, combined []ranking.CombinedRow) error {
	header := []string{"case_id"}
	for _, m := range models.AllMetrics {
		header = append(header, m.String()+"_rank")
	}

	rows := make([][]string, 0, len(combined))
	for _, c := range combined {
		row := []string{c.Case.CaseID}
		for _, m := range models.AllMetrics {
			row = append(row, strconv.Itoa(c.Rank(m)))
		}
		rows = append(rows, row)
	}
	return writeCSV(path, header, rows)
}

// RankedTableFile names the CSV holding the ranking by metric.
func RankedTableFile(metric models.Metric) string {
	return metric.String() + "_ranking.csv"
}

// WriteTables writes the metrics table, one ranked table per metric and the
// combined table into dir, returning the paths written.
func WriteTables(dir string, r *ranking.Ranking) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var paths []string
	path := filepath.Join(dir, MetricsTableFile)
	if err := WriteMetricsTable(path, r); err != nil {
		return paths, err
	}
	paths = append(paths, path)

	for _, m := range models.AllMetrics {
		t := r.Table(m)
		if t == nil {
			continue
		}
		path := filepath.Join(dir, RankedTableFile(m))
		if err := WriteRankedTable(path, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	path = filepath.Join(dir, CombinedTableFile)
	if err := WriteCombinedTable(path, r.Combined); err != nil {
		return paths, err
	}
	return append(paths, path), nil
}
