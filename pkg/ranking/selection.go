package ranking

import "edgeuncertainty/internal/models"

// Selection is the outcome of picking cases from one ranked table.
type Selection struct {
	Metric models.Metric

	// MostDifficult are the first N rows of the table
	MostDifficult []Row

	// LeastDifficult are the last N rows, in table order
	LeastDifficult []Row

	// NonZeroOnly is true when LeastDifficult was drawn only from cases
	// whose metric is strictly positive
	NonZeroOnly bool
}

// Select picks the n most and n least difficult cases of t. The least
// difficult pick skips zero-valued cases when at least n positive cases
// exist; otherwise it falls back to the tail of the full table. The two
// groups may share cases when the table has fewer than 2n rows.
func Select(t *Table, n int) Selection {
	sel := Selection{Metric: t.Metric}
	if n <= 0 || t.Len() == 0 {
		return sel
	}

	sel.MostDifficult = head(t.Rows, n)

	nonZero := make([]Row, 0, t.Len())
	for _, r := range t.Rows {
		if r.Value > 0 {
			nonZero = append(nonZero, r)
		}
	}
	if len(nonZero) >= n {
		sel.LeastDifficult = tail(nonZero, n)
		sel.NonZeroOnly = true
	} else {
		sel.LeastDifficult = tail(t.Rows, n)
	}
	return sel
}

// SelectAll applies Select to every table of r.
func SelectAll(r *Ranking, n int) []Selection {
	out := make([]Selection, 0, len(models.AllMetrics))
	for _, m := range models.AllMetrics {
		if t := r.Table(m); t != nil {
			out = append(out, Select(t, n))
		}
	}
	return out
}

// CaseIDs returns the identifiers of rows in order.
func CaseIDs(rows []Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Case.CaseID
	}
	return ids
}

func head(rows []Row, n int) []Row {
	if n > len(rows) {
		n = len(rows)
	}
	return append([]Row(nil), rows[:n]...)
}

func tail(rows []Row, n int) []Row {
	if n > len(rows) {
		n = len(rows)
	}
	return append([]Row(nil), rows[len(rows)-n:]...)
}
