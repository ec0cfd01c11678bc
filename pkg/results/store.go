package results

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"edgeuncertainty/internal/models"
	"edgeuncertainty/pkg/analysis"
)

//go:embed schema.sql
var schemaSQL string

// Store records analysis runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the database at path and applies
// the schema.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// nullFloat stores NaN as NULL.
func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// SaveRun persists one run with its metrics, ranks and failures in a single
// transaction. A RunID is generated when info has none; it is returned and
// written back into info.
func (s *Store) SaveRun(ctx context.Context, info *RunInfo, report *analysis.Report) (string, error) {
	if info.RunID == "" {
		info.RunID = uuid.New().String()
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var finished sql.NullInt64
	if !info.FinishedAt.IsZero() {
		finished = sql.NullInt64{Int64: info.FinishedAt.UnixNano(), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			run_id, input_dir, output_dir, started_at, finished_at,
			total_cases, processed_cases, failed_cases,
			top_n, num_workers, include_certain, certain_scale, fallback_value
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.RunID, info.InputDir, info.OutputDir, info.StartedAt.UnixNano(), finished,
		info.TotalCases, report.Succeeded(), report.Failed(),
		info.TopN, info.NumWorkers, info.Policy.IncludeCertain, info.Policy.CertainScale, info.Policy.FallbackValue,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	metricStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO case_metrics (
			run_id, case_id, path,
			mean_uncertainty, sum_uncertainty, count_uncertain,
			total_voxels, background_voxels, certain_foreground_voxels,
			fuzziness_score, std_uncertainty,
			mean_probability, min_probability, max_probability,
			min_uncertainty
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare metrics insert: %w", err)
	}
	defer metricStmt.Close()

	for _, c := range report.Metrics {
		_, err := metricStmt.ExecContext(ctx,
			info.RunID, c.CaseID, c.Path,
			nullFloat(c.MeanUncertainty), nullFloat(c.SumUncertainty), c.CountUncertain,
			c.TotalVoxels, c.BackgroundVoxels, c.CertainForegroundVoxels,
			nullFloat(c.FuzzinessScore), nullFloat(c.StdUncertainty),
			nullFloat(c.MeanProbability), nullFloat(c.MinProbability), nullFloat(c.MaxProbability),
			nullFloat(c.MinUncertainty),
		)
		if err != nil {
			return "", fmt.Errorf("insert metrics for %s: %w", c.CaseID, err)
		}
	}

	if report.Ranking != nil {
		rankStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO case_ranks (run_id, case_id, metric, rank, value) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("prepare rank insert: %w", err)
		}
		defer rankStmt.Close()

		for _, row := range report.Ranking.Combined {
			for _, m := range models.AllMetrics {
				_, err := rankStmt.ExecContext(ctx,
					info.RunID, row.Case.CaseID, m.String(), row.Rank(m), nullFloat(m.Value(row.Case)))
				if err != nil {
					return "", fmt.Errorf("insert %s rank for %s: %w", m, row.Case.CaseID, err)
				}
			}
		}
	}

	failures := append(append([]analysis.CaseFailure{}, report.ScoreFailures...), report.EncodeFailures...)
	for _, f := range failures {
		var metric, group sql.NullString
		if f.Stage == analysis.StageEncode {
			metric = sql.NullString{String: f.Metric.String(), Valid: true}
			group = sql.NullString{String: string(f.Group), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO case_failures (run_id, case_id, stage, metric, grp, error) VALUES (?, ?, ?, ?, ?, ?)`,
			info.RunID, f.CaseID, string(f.Stage), metric, group, f.Err.Error())
		if err != nil {
			return "", fmt.Errorf("insert failure for %s: %w", f.CaseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return info.RunID, nil
}

// RunRecord is a stored analysis run.
type RunRecord struct {
	RunID          string
	InputDir       string
	OutputDir      string
	StartedAt      time.Time
	TotalCases     int
	ProcessedCases int
	FailedCases    int
	TopN           int
	IncludeCertain bool
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, input_dir, output_dir, started_at,
		       total_cases, processed_cases, failed_cases, top_n, include_certain
		FROM analysis_runs
		ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started int64
		if err := rows.Scan(&r.RunID, &r.InputDir, &r.OutputDir, &started,
			&r.TotalCases, &r.ProcessedCases, &r.FailedCases, &r.TopN, &r.IncludeCertain); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CaseMetrics returns the metrics stored for a run in insertion order.
func (s *Store) CaseMetrics(ctx context.Context, runID string) ([]models.CaseMetrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, path,
		       mean_uncertainty, sum_uncertainty, count_uncertain,
		       total_voxels, background_voxels, certain_foreground_voxels,
		       fuzziness_score, std_uncertainty,
		       mean_probability, min_probability, max_probability,
		       min_uncertainty
		FROM case_metrics
		WHERE run_id = ?
		ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query case metrics: %w", err)
	}
	defer rows.Close()

	var out []models.CaseMetrics
	for rows.Next() {
		var c models.CaseMetrics
		var mean, sum, fuzz, std, meanP, minP, maxP, minU sql.NullFloat64
		if err := rows.Scan(&c.CaseID, &c.Path,
			&mean, &sum, &c.CountUncertain,
			&c.TotalVoxels, &c.BackgroundVoxels, &c.CertainForegroundVoxels,
			&fuzz, &std, &meanP, &minP, &maxP, &minU); err != nil {
			return nil, err
		}
		c.MeanUncertainty = floatOrNaN(mean)
		c.SumUncertainty = floatOrNaN(sum)
		c.FuzzinessScore = floatOrNaN(fuzz)
		c.StdUncertainty = floatOrNaN(std)
		c.MeanProbability = floatOrNaN(meanP)
		c.MinProbability = floatOrNaN(minP)
		c.MaxProbability = floatOrNaN(maxP)
		c.MinUncertainty = floatOrNaN(minU)
		out = append(out, c)
	}
	return out, rows.Err()
}

// RankRecord is one stored rank of a case under a metric.
type RankRecord struct {
	CaseID string
	Rank   int
	Value  float64
}

// Ranks returns the stored ranking of a run under metric, best rank first.
func (s *Store) Ranks(ctx context.Context, runID string, metric models.Metric) ([]RankRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, rank, value
		FROM case_ranks
		WHERE run_id = ? AND metric = ?
		ORDER BY rank`, runID, metric.String())
	if err != nil {
		return nil, fmt.Errorf("query ranks: %w", err)
	}
	defer rows.Close()

	var out []RankRecord
	for rows.Next() {
		var r RankRecord
		var v sql.NullFloat64
		if err := rows.Scan(&r.CaseID, &r.Rank, &v); err != nil {
			return nil, err
		}
		r.Value = floatOrNaN(v)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunRanks returns every stored ranking of a run keyed by metric, best
// rank first. An unknown metric name in the store is an error.
func (s *Store) RunRanks(ctx context.Context, runID string) (map[models.Metric][]RankRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT metric, case_id, rank, value
		FROM case_ranks
		WHERE run_id = ?
		ORDER BY metric, rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("query ranks: %w", err)
	}
	defer rows.Close()

	out := make(map[models.Metric][]RankRecord)
	for rows.Next() {
		var name string
		var r RankRecord
		var v sql.NullFloat64
		if err := rows.Scan(&name, &r.CaseID, &r.Rank, &v); err != nil {
			return nil, err
		}
		m, ok := models.ParseMetric(name)
		if !ok {
			return nil, fmt.Errorf("unknown metric %q in run %s", name, runID)
		}
		r.Value = floatOrNaN(v)
		out[m] = append(out[m], r)
	}
	return out, rows.Err()
}

// FailureRecord is a stored per-case failure.
type FailureRecord struct {
	CaseID string
	Stage  string
	Metric string
	Group  string
	Error  string
}

// Failures returns the failures stored for a run.
func (s *Store) Failures(ctx context.Context, runID string) ([]FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, stage, COALESCE(metric, ''), COALESCE(grp, ''), error
		FROM case_failures
		WHERE run_id = ?
		ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []FailureRecord
	for rows.Next() {
		var f FailureRecord
		if err := rows.Scan(&f.CaseID, &f.Stage, &f.Metric, &f.Group, &f.Error); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
