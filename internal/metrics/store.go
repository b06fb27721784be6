package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunMetric records the outcome of a single shopping list reconciliation.
type RunMetric struct {
	Created      int
	Updated      int
	Collapsed    int
	Removed      int
	SkippedMeals int
	LatencyMS    int64
	Timestamp    time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m RunMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	const query = `
INSERT INTO reconcile_runs (created, updated, collapsed, removed, skipped_meals, latency_ms, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, m.Created, m.Updated, m.Collapsed, m.Removed, m.SkippedMeals, m.LatencyMS, ts.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to record reconcile run: %w", err)
	}
	return nil
}

// DailyRuns represents reconciliation totals for a single day.
type DailyRuns struct {
	Date         string
	Runs         int
	Created      int
	Removed      int
	SkippedMeals int
	AvgLatencyMS float64
}

const timeLayout = "2006-01-02 15:04:05"

// GetDailyRuns retrieves per-day totals for the last N days, most recent first.
func (s *Store) GetDailyRuns(ctx context.Context, days int) ([]DailyRuns, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
	const query = `
SELECT substr(timestamp, 1, 10) AS day, COUNT(*), SUM(created), SUM(removed), SUM(skipped_meals), AVG(latency_ms)
FROM reconcile_runs
WHERE timestamp >= ?
GROUP BY day
ORDER BY day DESC`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily runs: %w", err)
	}
	defer rows.Close()

	var results []DailyRuns
	for rows.Next() {
		var d DailyRuns
		if err := rows.Scan(&d.Date, &d.Runs, &d.Created, &d.Removed, &d.SkippedMeals, &d.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan daily runs: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM reconcile_runs WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up reconcile runs: %w", err)
	}
	return res.RowsAffected()
}
