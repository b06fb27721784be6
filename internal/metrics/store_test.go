package metrics

import (
	"context"
	"testing"
	"time"

	"meal-planner/internal/database"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	defer db.Close()
	store := NewStore(db.SQL)

	now := time.Now().UTC()
	runs := []RunMetric{
		{Created: 3, Updated: 1, SkippedMeals: 1, LatencyMS: 10, Timestamp: now},
		{Created: 1, Removed: 2, LatencyMS: 30, Timestamp: now},
		{Created: 5, LatencyMS: 5, Timestamp: now.AddDate(0, 0, -40)},
	}
	for _, r := range runs {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	t.Run("GetDailyRuns", func(t *testing.T) {
		days, err := store.GetDailyRuns(ctx, 7)
		if err != nil {
			t.Fatalf("GetDailyRuns failed: %v", err)
		}
		if len(days) != 1 {
			t.Fatalf("Expected 1 day of runs, got %d", len(days))
		}
		d := days[0]
		if d.Date != now.Format("2006-01-02") {
			t.Errorf("Expected date %s, got %s", now.Format("2006-01-02"), d.Date)
		}
		if d.Runs != 2 || d.Created != 4 || d.Removed != 2 || d.SkippedMeals != 1 {
			t.Errorf("Unexpected totals: %+v", d)
		}
		if d.AvgLatencyMS != 20 {
			t.Errorf("Expected average latency 20, got %v", d.AvgLatencyMS)
		}
	})

	t.Run("Cleanup", func(t *testing.T) {
		n, err := store.Cleanup(ctx, 30)
		if err != nil {
			t.Fatalf("Cleanup failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 old run removed, got %d", n)
		}
		days, _ := store.GetDailyRuns(ctx, 365)
		if len(days) != 1 {
			t.Errorf("Expected only recent runs to remain, got %+v", days)
		}
	})
}
