// Package ranking orders a case population by each difficulty metric and
// picks the most and least difficult cases for mask generation.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"edgeuncertainty/internal/models"
)

var (
	// ErrEmptyPopulation is returned when there are no cases to rank
	ErrEmptyPopulation = errors.New("no successfully processed cases to rank")

	// ErrDuplicateCase is returned when a case identifier appears twice
	ErrDuplicateCase = errors.New("duplicate case identifier")

	// ErrIncompleteJoin is returned when a case is missing from a per-metric table
	ErrIncompleteJoin = errors.New("case missing from ranked table")
)

// Row is one ranked case.
type Row struct {
	// Rank is the 1-based position in the table
	Rank int

	// Value is the metric the table is ordered by
	Value float64

	Case models.CaseMetrics
}

// Table is the population ordered by one metric, highest value first.
type Table struct {
	Metric models.Metric
	Rows   []Row
}

// Len returns the number of ranked cases.
func (t *Table) Len() int { return len(t.Rows) }

// RankOf returns the rank of caseID and whether it is present.
func (t *Table) RankOf(caseID string) (int, bool) {
	for _, r := range t.Rows {
		if r.Case.CaseID == caseID {
			return r.Rank, true
		}
	}
	return 0, false
}

// Rank orders cases by metric, descending. cases must be in enumeration
// order: equal values keep that order, so the result is deterministic.
func Rank(cases []models.CaseMetrics, metric models.Metric) (*Table, error) {
	if len(cases) == 0 {
		return nil, ErrEmptyPopulation
	}
	if err := checkUnique(cases); err != nil {
		return nil, err
	}

	rows := make([]Row, len(cases))
	for i, c := range cases {
		rows[i] = Row{Value: metric.Value(c), Case: c}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return greater(rows[i].Value, rows[j].Value)
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	return &Table{Metric: metric, Rows: rows}, nil
}

// greater orders descending with NaN after every number.
func greater(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a > b
}

func checkUnique(cases []models.CaseMetrics) error {
	seen := make(map[string]struct{}, len(cases))
	for _, c := range cases {
		if _, ok := seen[c.CaseID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateCase, c.CaseID)
		}
		seen[c.CaseID] = struct{}{}
	}
	return nil
}

// CombinedRow holds one case with its rank under every metric.
type CombinedRow struct {
	Case  models.CaseMetrics
	Ranks map[models.Metric]int
}

// Rank returns the case's rank under metric.
func (r CombinedRow) Rank(metric models.Metric) int { return r.Ranks[metric] }

// Ranking bundles the per-metric tables and their join.
type Ranking struct {
	Tables   map[models.Metric]*Table
	Combined []CombinedRow
}

// Table returns the table for metric.
func (r *Ranking) Table(metric models.Metric) *Table { return r.Tables[metric] }

// RankAll ranks cases under every metric and joins the results.
func RankAll(cases []models.CaseMetrics) (*Ranking, error) {
	tables := make([]*Table, 0, len(models.AllMetrics))
	byMetric := make(map[models.Metric]*Table, len(models.AllMetrics))
	for _, m := range models.AllMetrics {
		t, err := Rank(cases, m)
		if err != nil {
			return nil, fmt.Errorf("ranking by %s: %w", m, err)
		}
		tables = append(tables, t)
		byMetric[m] = t
	}

	combined, err := Combine(cases, tables...)
	if err != nil {
		return nil, err
	}
	return &Ranking{Tables: byMetric, Combined: combined}, nil
}

// Combine joins per-metric tables on case identifier. Rows follow the
// enumeration order of cases and every case must appear in every table.
func Combine(cases []models.CaseMetrics, tables ...*Table) ([]CombinedRow, error) {
	if len(cases) == 0 {
		return nil, ErrEmptyPopulation
	}

	index := make([]map[string]int, len(tables))
	for i, t := range tables {
		index[i] = make(map[string]int, t.Len())
		for _, r := range t.Rows {
			index[i][r.Case.CaseID] = r.Rank
		}
	}

	out := make([]CombinedRow, 0, len(cases))
	for _, c := range cases {
		row := CombinedRow{Case: c, Ranks: make(map[models.Metric]int, len(tables))}
		for i, t := range tables {
			rank, ok := index[i][c.CaseID]
			if !ok {
				return nil, fmt.Errorf("%w: %q not in %s table", ErrIncompleteJoin, c.CaseID, t.Metric)
			}
			row.Ranks[t.Metric] = rank
		}
		out = append(out, row)
	}
	return out, nil
}
