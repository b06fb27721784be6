package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meal-planner/internal/catalog"
	"meal-planner/internal/clipper"
	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/logger"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/shopping"
	"meal-planner/internal/storage"
)

var (
	// ErrUnknownRecipe is returned when no recipe matches a name.
	ErrUnknownRecipe = errors.New("unknown recipe")
	// ErrIncompleteRecipe is returned when planning a recipe without ingredients.
	ErrIncompleteRecipe = errors.New("recipe has no ingredients")
	// ErrUnknownArticle is returned when no article matches a name.
	ErrUnknownArticle = errors.New("unknown article")
	// ErrUnknownItem is returned when a shopping list line does not exist.
	ErrUnknownItem = errors.New("unknown shopping list item")
)

const clipTimeout = 15 * time.Second

// App holds the application's dependencies.
type App struct {
	db          *database.DB
	recipes     *catalog.Repository
	meals       *planner.Store
	updater     *shopping.Updater
	runs        *metrics.Store
	clipper     *clipper.Clipper
	cfg         *config.Config
	log         *logger.Logger
	unsubscribe func()
}

// NewApp creates and initializes a new App instance.
func NewApp(
	cfg *config.Config,
	db *database.DB,
	recipes *catalog.Repository,
	meals *planner.Store,
	updater *shopping.Updater,
	runs *metrics.Store,
	clip *clipper.Clipper,
	log *logger.Logger,
) *App {
	a := &App{
		db:      db,
		recipes: recipes,
		meals:   meals,
		updater: updater,
		runs:    runs,
		clipper: clip,
		cfg:     cfg,
		log:     log,
	}
	a.unsubscribe = meals.Subscribe(func(all []planner.PlannedMeal) {
		log.Debug("Planned meals changed", "count", len(all))
	})
	return a
}

// Bootstrap opens the database and the planner store described by cfg and
// wires an App on top of them. collector may be nil.
func Bootstrap(cfg *config.Config, log *logger.Logger, collector *metrics.Collector) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath, log)
	if err != nil {
		return nil, err
	}

	kv, err := storage.NewFileStore(cfg.PlannerStorePath)
	if err != nil {
		db.Close()
		return nil, err
	}
	meals, err := planner.NewStore(kv, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	recipes := catalog.NewRepository(db.SQL)
	runs := metrics.NewStore(db.SQL)
	updater := shopping.NewUpdater(db.SQL, meals, recipes, runs, collector, log)
	clip := clipper.NewClipper(clipTimeout)
	return NewApp(cfg, db, recipes, meals, updater, runs, clip, log), nil
}

// Close releases the database.
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	return a.db.Close()
}

// Catalog exposes the recipe and article repository.
func (a *App) Catalog() *catalog.Repository {
	return a.recipes
}

// FindRecipe resolves a plannable recipe by approximate name.
func (a *App) FindRecipe(ctx context.Context, name string) (*catalog.Recipe, error) {
	all, err := a.recipes.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	rec := catalog.CheckForSimilarRecipe(name, all)
	if rec == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecipe, name)
	}
	if !rec.IsComplete() {
		return nil, fmt.Errorf("%w: %q", ErrIncompleteRecipe, rec.Name)
	}
	return rec, nil
}

// PlanMeal plans a recipe and refreshes the shopping list.
func (a *App) PlanMeal(ctx context.Context, recipeName string, day int, mealType planner.MealType, headcount int) (planner.PlannedMeal, *catalog.Recipe, error) {
	rec, err := a.FindRecipe(ctx, recipeName)
	if err != nil {
		return planner.PlannedMeal{}, nil, err
	}
	meal, err := a.meals.AddMeal(ctx, planner.PlannedMeal{
		RecipeID:  rec.ID,
		Headcount: headcount,
		Day:       day,
		MealType:  mealType,
	})
	if err != nil {
		return planner.PlannedMeal{}, nil, err
	}
	a.log.Info("Meal planned", "recipe", rec.Name, "day", planner.DayName(day), "meal_type", mealType, "headcount", headcount)

	if _, err := a.RefreshShoppingList(ctx); err != nil {
		return meal, rec, err
	}
	return meal, rec, nil
}

// UnplanMeal removes a planned meal and refreshes the shopping list.
func (a *App) UnplanMeal(ctx context.Context, mealID uuid.UUID) error {
	if err := a.meals.RemoveMeal(ctx, mealID); err != nil {
		return err
	}
	_, err := a.RefreshShoppingList(ctx)
	return err
}

// ClearPlan unplans every meal and refreshes the shopping list.
func (a *App) ClearPlan(ctx context.Context) error {
	if err := a.meals.Clear(ctx); err != nil {
		return err
	}
	_, err := a.RefreshShoppingList(ctx)
	return err
}

// DeleteRecipe removes a recipe from the catalog together with its planned meals.
func (a *App) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	n, err := a.meals.RemoveMealsForRecipe(ctx, id)
	if err != nil {
		return err
	}
	if err := a.recipes.DeleteRecipe(ctx, id); err != nil {
		return err
	}
	a.log.Info("Recipe deleted", "recipe_id", id, "unplanned_meals", n)
	_, err = a.RefreshShoppingList(ctx)
	return err
}

// RefreshShoppingList reconciles the shopping list with the planned meals.
func (a *App) RefreshShoppingList(ctx context.Context) (shopping.Changes, error) {
	changes, err := a.updater.Update(ctx)
	if err != nil {
		return shopping.Changes{}, fmt.Errorf("failed to refresh shopping list: %w", err)
	}
	return changes, nil
}

// DailyRuns returns reconciliation totals for the last days.
func (a *App) DailyRuns(ctx context.Context, days int) ([]metrics.DailyRuns, error) {
	return a.runs.GetDailyRuns(ctx, days)
}

// CleanupMetrics removes reconciliation history older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	return a.runs.Cleanup(ctx, days)
}

// Health reports process stats and the size of the data files.
func (a *App) Health() metrics.SysHealth {
	return metrics.GetSysHealth(a.cfg.DatabasePath, a.cfg.PlannerStorePath)
}
