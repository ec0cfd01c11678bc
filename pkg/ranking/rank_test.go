package ranking

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgeuncertainty/internal/models"
)

func caseWith(id string, mean, sum float64, count int) models.CaseMetrics {
	return models.CaseMetrics{
		CaseID:          id,
		MeanUncertainty: mean,
		SumUncertainty:  sum,
		CountUncertain:  count,
	}
}

func population() []models.CaseMetrics {
	return []models.CaseMetrics{
		caseWith("IBD_0000", 0.10, 40, 7),
		caseWith("IBD_0001", 0.30, 10, 7),
		caseWith("IBD_0002", 0.00, 0, 0),
		caseWith("IBD_0003", 0.30, 25, 12),
		caseWith("IBD_0004", 0.05, 25, 3),
	}
}

func TestRankDescendingWithStableTies(t *testing.T) {
	table, err := Rank(population(), models.MeanUncertainty)
	require.NoError(t, err)

	want := []string{"IBD_0001", "IBD_0003", "IBD_0000", "IBD_0004", "IBD_0002"}
	if diff := cmp.Diff(want, CaseIDs(table.Rows)); diff != "" {
		t.Errorf("rank order mismatch (-want +got):\n%s", diff)
	}
	for i, r := range table.Rows {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRankIsBijectionAndDeterministic(t *testing.T) {
	for _, m := range models.AllMetrics {
		first, err := Rank(population(), m)
		require.NoError(t, err)
		second, err := Rank(population(), m)
		require.NoError(t, err)

		seen := make(map[int]bool)
		for _, r := range first.Rows {
			assert.False(t, seen[r.Rank], "duplicate rank %d under %s", r.Rank, m)
			seen[r.Rank] = true
		}
		for rank := 1; rank <= len(first.Rows); rank++ {
			assert.True(t, seen[rank], "rank %d missing under %s", rank, m)
		}
		assert.Equal(t, CaseIDs(first.Rows), CaseIDs(second.Rows))
	}
}

func TestRankCountMetricTies(t *testing.T) {
	table, err := Rank(population(), models.CountUncertain)
	require.NoError(t, err)
	assert.Equal(t, []string{"IBD_0003", "IBD_0000", "IBD_0001", "IBD_0004", "IBD_0002"}, CaseIDs(table.Rows))
}

func TestRankNaNSortsLast(t *testing.T) {
	cases := []models.CaseMetrics{
		caseWith("a", 0, math.NaN(), 0),
		caseWith("b", 0, 1, 0),
		caseWith("c", 0, 2, 0),
	}
	table, err := Rank(cases, models.SumUncertainty)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, CaseIDs(table.Rows))
}

func TestRankErrors(t *testing.T) {
	_, err := Rank(nil, models.MeanUncertainty)
	assert.ErrorIs(t, err, ErrEmptyPopulation)

	_, err = Rank([]models.CaseMetrics{caseWith("x", 0, 0, 0), caseWith("x", 1, 0, 0)}, models.MeanUncertainty)
	assert.ErrorIs(t, err, ErrDuplicateCase)

	_, err = RankAll(nil)
	assert.ErrorIs(t, err, ErrEmptyPopulation)
}

func TestRankAllCombined(t *testing.T) {
	r, err := RankAll(population())
	require.NoError(t, err)
	require.Len(t, r.Combined, 5)

	got := make(map[string][3]int)
	for _, row := range r.Combined {
		got[row.Case.CaseID] = [3]int{
			row.Rank(models.MeanUncertainty),
			row.Rank(models.SumUncertainty),
			row.Rank(models.CountUncertain),
		}
	}
	want := map[string][3]int{
		"IBD_0000": {3, 1, 2},
		"IBD_0001": {1, 4, 3},
		"IBD_0002": {5, 5, 5},
		"IBD_0003": {2, 2, 1},
		"IBD_0004": {4, 3, 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("combined ranks mismatch (-want +got):\n%s", diff)
	}

	// combined rows keep enumeration order
	ids := make([]string, len(r.Combined))
	for i, row := range r.Combined {
		ids[i] = row.Case.CaseID
	}
	assert.Equal(t, []string{"IBD_0000", "IBD_0001", "IBD_0002", "IBD_0003", "IBD_0004"}, ids)
}

func TestCombineIncompleteJoin(t *testing.T) {
	cases := population()
	partial, err := Rank(cases[:3], models.MeanUncertainty)
	require.NoError(t, err)

	_, err = Combine(cases, partial)
	assert.ErrorIs(t, err, ErrIncompleteJoin)
}

func TestRankOf(t *testing.T) {
	table, err := Rank(population(), models.SumUncertainty)
	require.NoError(t, err)

	rank, ok := table.RankOf("IBD_0001")
	assert.True(t, ok)
	assert.Equal(t, 4, rank)

	_, ok = table.RankOf("missing")
	assert.False(t, ok)
}
