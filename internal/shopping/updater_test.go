package shopping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"meal-planner/internal/catalog"
	"meal-planner/internal/logger"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
)

type staticMeals []planner.PlannedMeal

func (s *staticMeals) AllMeals() []planner.PlannedMeal {
	return append([]planner.PlannedMeal(nil), (*s)...)
}

type recordedRuns struct {
	runs []metrics.RunMetric
}

func (r *recordedRuns) Record(_ context.Context, m metrics.RunMetric) error {
	r.runs = append(r.runs, m)
	return nil
}

func TestUpdater(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cat := catalog.NewRepository(db.SQL)

	pates := &catalog.Article{Name: "Pâtes", Category: "Épicerie", Unit: "g"}
	tomate := &catalog.Article{Name: "Tomate", Category: "Fruits et légumes", Unit: "pièce(s)"}
	for _, a := range []*catalog.Article{pates, tomate} {
		if err := cat.SaveArticle(ctx, a); err != nil {
			t.Fatalf("SaveArticle failed: %v", err)
		}
	}
	rec := &catalog.Recipe{Name: "Pâtes à la tomate", Ingredients: []catalog.RecipeIngredient{
		{ArticleID: pates.ID, QuantityPerPerson: 100},
		{ArticleID: tomate.ID, QuantityPerPerson: 1.5},
	}}
	if err := cat.SaveRecipe(ctx, rec); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	meals := &staticMeals{
		{ID: uuid.New(), RecipeID: rec.ID, Headcount: 2, MealType: planner.Lunch},
		{ID: uuid.New(), RecipeID: uuid.New(), Headcount: 4, MealType: planner.Dinner},
	}
	runs := &recordedRuns{}
	collector := metrics.NewCollector(prometheus.NewRegistry())
	u := NewUpdater(db.SQL, meals, cat, runs, collector, logger.NewNop())
	u.SetClock(func() time.Time { return testNow })

	changes, err := u.Update(ctx)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(changes.Created) != 2 {
		t.Errorf("Expected 2 created items, got %d", len(changes.Created))
	}

	list, err := u.Current(ctx)
	if err != nil || list == nil {
		t.Fatalf("Expected a stored list, got (%v, %v)", list, err)
	}
	if got := list.ItemForArticle(pates.ID); got == nil || got.Quantity != 200 {
		t.Errorf("Expected 200 g of pasta, got %+v", got)
	}
	if got := list.ItemForArticle(tomate.ID); got == nil || got.Quantity != 3 {
		t.Errorf("Expected 3 tomatoes, got %+v", got)
	}

	t.Run("Idempotent", func(t *testing.T) {
		changes, err := u.Update(ctx)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if !changes.Empty() {
			t.Errorf("Expected no changes, got %+v", changes)
		}
		again, _ := u.Current(ctx)
		if len(again.Items) != 2 || again.ID != list.ID {
			t.Errorf("Expected the same two-item list, got %+v", again)
		}
	})

	t.Run("ModifyThenClearPlan", func(t *testing.T) {
		_, err := u.Modify(ctx, func(l *List) error {
			l.AddManual(tomate.ID, 2, u.Now())
			return nil
		})
		if err != nil {
			t.Fatalf("Modify failed: %v", err)
		}

		*meals = nil
		changes, err := u.Update(ctx)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if len(changes.Removed) != 1 || len(changes.Collapsed) != 1 {
			t.Errorf("Expected 1 removed and 1 collapsed item, got %+v", changes)
		}
		l, _ := u.Current(ctx)
		if len(l.Items) != 1 || l.Items[0].ArticleID != tomate.ID || l.Items[0].Quantity != 2 {
			t.Errorf("Expected only 2 manual tomatoes, got %+v", l.Items)
		}
	})

	t.Run("ModifyErrorStoresNothing", func(t *testing.T) {
		_, err := u.Modify(ctx, func(l *List) error {
			l.Items = nil
			return errors.New("cancelled")
		})
		if err == nil {
			t.Fatal("Expected the error to be returned")
		}
		l, _ := u.Current(ctx)
		if len(l.Items) != 1 {
			t.Errorf("Expected the list to be unchanged, got %d items", len(l.Items))
		}
	})

	t.Run("ModifyDeletesDroppedItems", func(t *testing.T) {
		_, err := u.Modify(ctx, func(l *List) error {
			l.Remove(l.Items[0].ID, u.Now())
			return nil
		})
		if err != nil {
			t.Fatalf("Modify failed: %v", err)
		}
		l, _ := u.Current(ctx)
		if len(l.Items) != 0 {
			t.Errorf("Expected an empty list, got %+v", l.Items)
		}
	})

	if len(runs.runs) != 3 {
		t.Fatalf("Expected 3 recorded runs, got %d", len(runs.runs))
	}
	if runs.runs[0].SkippedMeals != 1 {
		t.Errorf("Expected the meal with a missing recipe to be counted, got %d", runs.runs[0].SkippedMeals)
	}
	if got := testutil.ToFloat64(collector.RunsTotal.WithLabelValues("success")); got != 3 {
		t.Errorf("Expected 3 successful runs, got %v", got)
	}
}

func TestUpdaterDiscard(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cat := catalog.NewRepository(db.SQL)
	pates := &catalog.Article{Name: "Pâtes", Unit: "g"}
	if err := cat.SaveArticle(ctx, pates); err != nil {
		t.Fatalf("SaveArticle failed: %v", err)
	}
	rec := &catalog.Recipe{Name: "Pâtes au beurre", Ingredients: []catalog.RecipeIngredient{{ArticleID: pates.ID, QuantityPerPerson: 100}}}
	if err := cat.SaveRecipe(ctx, rec); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}
	meals := &staticMeals{{ID: uuid.New(), RecipeID: rec.ID, Headcount: 3, MealType: planner.Dinner}}
	u := NewUpdater(db.SQL, meals, cat, nil, nil, logger.NewNop())
	u.SetClock(func() time.Time { return testNow })

	if err := u.Discard(ctx); !errors.Is(err, ErrNoList) {
		t.Fatalf("Expected ErrNoList before any list exists, got %v", err)
	}

	if _, err := u.Update(ctx); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	first, _ := u.Current(ctx)
	if _, err := u.Modify(ctx, func(l *List) error {
		l.AddManual(uuid.New(), 2, testNow)
		return nil
	}); err != nil {
		t.Fatalf("Modify failed: %v", err)
	}

	if err := u.Discard(ctx); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if got, err := u.Current(ctx); err != nil || got != nil {
		t.Fatalf("Expected no list after discard, got (%+v, %v)", got, err)
	}
	var orphans int
	if err := db.SQL.QueryRow(`SELECT COUNT(*) FROM shopping_list_items`).Scan(&orphans); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if orphans != 0 {
		t.Errorf("Expected discarded items to be deleted, got %d rows", orphans)
	}

	if _, err := u.Update(ctx); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	fresh, _ := u.Current(ctx)
	if fresh == nil || fresh.ID == first.ID {
		t.Fatalf("Expected a new list, got %+v", fresh)
	}
	if len(fresh.Items) != 1 || fresh.Items[0].Quantity != 300 || fresh.Items[0].ManuallyAdded {
		t.Errorf("Expected only the recipe demand in the fresh list, got %+v", fresh.Items)
	}
}

func TestUpdaterCommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, created_at, modified_at FROM shopping_lists").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "modified_at"}))
	mock.ExpectExec("INSERT INTO shopping_lists").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO shopping_lists").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	collector := metrics.NewCollector(prometheus.NewRegistry())
	runs := &recordedRuns{}
	u := NewUpdater(db, &staticMeals{}, catalog.NewMemory(), runs, collector, logger.NewNop())

	if _, err := u.Update(context.Background()); err == nil {
		t.Fatal("Expected the commit error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
	if len(runs.runs) != 0 {
		t.Errorf("Expected no run to be recorded, got %d", len(runs.runs))
	}
	if got := testutil.ToFloat64(collector.RunsTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("Expected 1 failed run, got %v", got)
	}
}
