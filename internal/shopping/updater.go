package shopping

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"meal-planner/internal/catalog"
	"meal-planner/internal/logger"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
)

// MealSource lists the planned meals. planner.Store satisfies it.
type MealSource interface {
	AllMeals() []planner.PlannedMeal
}

// RunRecorder persists reconciliation metrics. metrics.Store satisfies it.
type RunRecorder interface {
	Record(ctx context.Context, m metrics.RunMetric) error
}

// Updater keeps the stored shopping list in line with the planned meals.
// Every read-modify-write of the list runs under one mutex and one
// transaction, so concurrent callers never interleave.
type Updater struct {
	mu        sync.Mutex
	db        *sql.DB
	repo      *Repository
	meals     MealSource
	catalog   catalog.Provider
	runs      RunRecorder
	collector *metrics.Collector
	log       *logger.Logger
	now       func() time.Time
}

// NewUpdater creates an Updater. runs and collector may be nil.
func NewUpdater(
	db *sql.DB,
	meals MealSource,
	provider catalog.Provider,
	runs RunRecorder,
	collector *metrics.Collector,
	log *logger.Logger,
) *Updater {
	return &Updater{
		db:        db,
		repo:      NewRepository(db),
		meals:     meals,
		catalog:   provider,
		runs:      runs,
		collector: collector,
		log:       log.With("component", "shopping"),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (u *Updater) SetClock(now func() time.Time) {
	u.now = now
}

// Current returns the stored list, or nil if none was created yet.
func (u *Updater) Current(ctx context.Context) (*List, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.repo.Current(ctx)
}

// Update recomputes the recipe demand from every planned meal and reconciles
// the current list with it. Re-running after a failure is safe.
func (u *Updater) Update(ctx context.Context) (Changes, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	start := time.Now()
	changes, skipped, err := u.update(ctx)
	if err != nil {
		if u.collector != nil {
			u.collector.ObserveFailure()
		}
		return Changes{}, err
	}

	run := metrics.RunMetric{
		Created:      len(changes.Created),
		Updated:      len(changes.Updated),
		Collapsed:    len(changes.Collapsed),
		Removed:      len(changes.Removed),
		SkippedMeals: skipped,
		LatencyMS:    time.Since(start).Milliseconds(),
		Timestamp:    u.now(),
	}
	if u.collector != nil {
		u.collector.ObserveRun(run)
	}
	if u.runs != nil {
		if err := u.runs.Record(ctx, run); err != nil {
			u.log.Warn("Failed to record reconcile run", "error", err)
		}
	}
	u.log.Info("Shopping list reconciled",
		"created", run.Created, "updated", run.Updated, "collapsed", run.Collapsed,
		"removed", run.Removed, "skipped_meals", skipped)
	return changes, nil
}

func (u *Updater) update(ctx context.Context) (Changes, int, error) {
	meals := u.meals.AllMeals()
	recipeIDs := make([]uuid.UUID, 0, len(meals))
	for _, m := range meals {
		recipeIDs = append(recipeIDs, m.RecipeID)
	}

	// The catalog is read before the transaction starts; the provider may
	// share the same connection pool.
	snap, err := catalog.Snapshot(ctx, u.catalog, recipeIDs)
	if err != nil {
		return Changes{}, 0, fmt.Errorf("failed to load recipes: %w", err)
	}
	unresolved := UnresolvedMeals(meals, snap)
	for _, m := range unresolved {
		u.log.Debug("Skipping planned meal with missing recipe", "meal_id", m.ID, "recipe_id", m.RecipeID)
	}
	demand := Aggregate(meals, snap)

	var changes Changes
	err = u.inTx(ctx, func(repo *Repository) error {
		now := u.now().UTC()
		list, err := repo.GetOrCreateCurrent(ctx, now)
		if err != nil {
			return err
		}
		changes = Reconcile(list, demand, now)
		for _, it := range changes.Removed {
			if err := repo.DeleteItem(ctx, it.ID); err != nil {
				return err
			}
		}
		return repo.Save(ctx, list)
	})
	if err != nil {
		return Changes{}, 0, err
	}
	return changes, len(unresolved), nil
}

// Modify loads or creates the current list, applies fn and persists the
// result. Items fn drops from the list are deleted. Nothing is stored when fn
// returns an error.
func (u *Updater) Modify(ctx context.Context, fn func(list *List) error) (*List, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var out *List
	err := u.inTx(ctx, func(repo *Repository) error {
		now := u.now().UTC()
		list, err := repo.GetOrCreateCurrent(ctx, now)
		if err != nil {
			return err
		}
		before := make(map[uuid.UUID]struct{}, len(list.Items))
		for _, it := range list.Items {
			before[it.ID] = struct{}{}
		}

		if err := fn(list); err != nil {
			return err
		}

		for _, it := range list.Items {
			delete(before, it.ID)
		}
		for id := range before {
			if err := repo.DeleteItem(ctx, id); err != nil {
				return err
			}
		}
		if err := repo.Save(ctx, list); err != nil {
			return err
		}
		out = list
		return nil
	})
	return out, err
}

// Discard deletes the current list with its items, manual additions
// included. The next Update starts a fresh list from the planned meals.
// ErrNoList is returned when there is nothing to discard.
func (u *Updater) Discard(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.inTx(ctx, func(repo *Repository) error {
		list, err := repo.Current(ctx)
		if err != nil {
			return err
		}
		if list == nil {
			return ErrNoList
		}
		if err := repo.Delete(ctx, list.ID); err != nil {
			return err
		}
		u.log.Info("Shopping list discarded", "list_id", list.ID, "items", len(list.Items))
		return nil
	})
}

// Now returns the updater's current time.
func (u *Updater) Now() time.Time {
	return u.now().UTC()
}

func (u *Updater) inTx(ctx context.Context, fn func(repo *Repository) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(u.repo.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit shopping list: %w", err)
	}
	return nil
}
