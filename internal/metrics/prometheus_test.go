package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRun(RunMetric{Created: 2, Updated: 1, Removed: 3, SkippedMeals: 1, LatencyMS: 4})
	c.ObserveRun(RunMetric{Collapsed: 1})
	c.ObserveFailure()

	if got := testutil.ToFloat64(c.RunsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("Expected 2 successful runs, got %v", got)
	}
	if got := testutil.ToFloat64(c.RunsTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("Expected 1 failed run, got %v", got)
	}
	if got := testutil.ToFloat64(c.ItemChangesTotal.WithLabelValues("removed")); got != 3 {
		t.Errorf("Expected 3 removed items, got %v", got)
	}
	if got := testutil.ToFloat64(c.ItemChangesTotal.WithLabelValues("collapsed")); got != 1 {
		t.Errorf("Expected 1 collapsed item, got %v", got)
	}
	if got := testutil.ToFloat64(c.SkippedMealsTotal); got != 1 {
		t.Errorf("Expected 1 skipped meal, got %v", got)
	}
	if n := testutil.CollectAndCount(c.RunDurationSeconds); n != 1 {
		t.Errorf("Expected the duration histogram to be collected, got %d series", n)
	}
}
