package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exposes reconciliation runs as Prometheus metrics.
type Collector struct {
	// RunsTotal counts reconciliations by status (success, failure).
	RunsTotal *prometheus.CounterVec
	// ItemChangesTotal counts item changes by kind (created, updated, collapsed, removed).
	ItemChangesTotal *prometheus.CounterVec
	// SkippedMealsTotal counts planned meals whose recipe could not be resolved.
	SkippedMealsTotal prometheus.Counter
	// RunDurationSeconds measures how long a reconciliation took.
	RunDurationSeconds prometheus.Histogram
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_planner_reconcile_runs_total",
			Help: "Total shopping list reconciliations by status",
		}, []string{"status"}),
		ItemChangesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_planner_reconcile_item_changes_total",
			Help: "Total shopping items changed by reconciliation, by kind",
		}, []string{"kind"}),
		SkippedMealsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "meal_planner_reconcile_skipped_meals_total",
			Help: "Total planned meals skipped because their recipe was missing",
		}),
		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "meal_planner_reconcile_duration_seconds",
			Help:    "Duration of shopping list reconciliations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// ObserveRun records a successful run.
func (c *Collector) ObserveRun(m RunMetric) {
	c.RunsTotal.WithLabelValues("success").Inc()
	c.ItemChangesTotal.WithLabelValues("created").Add(float64(m.Created))
	c.ItemChangesTotal.WithLabelValues("updated").Add(float64(m.Updated))
	c.ItemChangesTotal.WithLabelValues("collapsed").Add(float64(m.Collapsed))
	c.ItemChangesTotal.WithLabelValues("removed").Add(float64(m.Removed))
	c.SkippedMealsTotal.Add(float64(m.SkippedMeals))
	c.RunDurationSeconds.Observe(float64(m.LatencyMS) / 1000)
}

// ObserveFailure records a failed run.
func (c *Collector) ObserveFailure() {
	c.RunsTotal.WithLabelValues("failure").Inc()
}
