package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"meal-planner/internal/catalog"
	"meal-planner/internal/config"
	"meal-planner/internal/logger"
	"meal-planner/internal/planner"
)

type fixture struct {
	app     *App
	pates   *catalog.Article
	tomate  *catalog.Article
	huile   *catalog.Article
	lessive *catalog.Article
	recipe  *catalog.Recipe
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:     filepath.Join(dir, "meal-planner.db"),
		PlannerStorePath: filepath.Join(dir, "planner"),
	}
	a, err := Bootstrap(cfg, logger.NewNop(), nil)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	f := &fixture{
		app:     a,
		pates:   &catalog.Article{Name: "Pâtes", Category: "Épicerie", Unit: "g", IsFood: true},
		tomate:  &catalog.Article{Name: "Tomate", Category: "Fruits et légumes", Unit: "pièce(s)", IsFood: true},
		huile:   &catalog.Article{Name: "Huile d'olive", Category: "Épicerie", Unit: "cuillère(s) à soupe", IsFood: true},
		lessive: &catalog.Article{Name: "Lessive", Category: "Entretien", Unit: "pièce(s)"},
	}
	for _, art := range []*catalog.Article{f.pates, f.tomate, f.huile, f.lessive} {
		if err := a.Catalog().SaveArticle(ctx, art); err != nil {
			t.Fatalf("SaveArticle failed: %v", err)
		}
	}
	f.recipe = &catalog.Recipe{Name: "Pâtes à la tomate", Ingredients: []catalog.RecipeIngredient{
		{ArticleID: f.pates.ID, QuantityPerPerson: 125},
		{ArticleID: f.tomate.ID, QuantityPerPerson: 1},
		{ArticleID: f.huile.ID, QuantityPerPerson: 0.5},
	}}
	if err := a.Catalog().SaveRecipe(ctx, f.recipe); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}
	if err := a.Catalog().SaveRecipe(ctx, &catalog.Recipe{Name: "Brouillon"}); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}
	return f
}

func TestPlanAndShop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.app

	lunch, rec, err := a.PlanMeal(ctx, "pates a la tomate", 0, planner.Lunch, 4)
	if err != nil {
		t.Fatalf("PlanMeal failed: %v", err)
	}
	if rec.ID != f.recipe.ID {
		t.Errorf("Expected recipe %s, got %s", f.recipe.ID, rec.ID)
	}
	if _, _, err := a.PlanMeal(ctx, "Pâtes à la tomate", 2, planner.Dinner, 2); err != nil {
		t.Fatalf("PlanMeal failed: %v", err)
	}

	view, err := a.ShoppingList(ctx)
	if err != nil {
		t.Fatalf("ShoppingList failed: %v", err)
	}
	text := view.String()
	for _, want := range []string{"Épicerie", "Pâtes: 750 g", "Huile d'olive: ", "Tomate: 6 pièce(s)", "Fruits et légumes"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected list to contain %q, got:\n%s", want, text)
		}
	}

	t.Run("WeekPlan", func(t *testing.T) {
		week, err := a.WeekPlan(ctx)
		if err != nil {
			t.Fatalf("WeekPlan failed: %v", err)
		}
		out := FormatWeek(week)
		if !strings.Contains(out, "Lundi") || !strings.Contains(out, "Mercredi") || strings.Contains(out, "Mardi") {
			t.Errorf("Unexpected week rendering:\n%s", out)
		}
		if m, ok := MealByNumber(week, 1); !ok || m.ID != lunch.ID {
			t.Errorf("Expected meal 1 to be Monday lunch, got %+v", m)
		}
	})

	t.Run("BuyAndEdit", func(t *testing.T) {
		art, err := a.BuyArticle(ctx, "lesive", 1)
		if err != nil {
			t.Fatalf("BuyArticle failed: %v", err)
		}
		if art.ID != f.lessive.ID {
			t.Errorf("Expected Lessive, got %s", art.Name)
		}

		view, _ := a.ShoppingList(ctx)
		line := findLine(t, view, "Tomate")
		if err := a.EditItem(ctx, line.ItemID, 8); err != nil {
			t.Fatalf("EditItem failed: %v", err)
		}
		checked, err := a.ToggleItem(ctx, line.ItemID)
		if err != nil || !checked {
			t.Fatalf("Expected item to be checked, got (%v, %v)", checked, err)
		}

		if _, err := a.RefreshShoppingList(ctx); err != nil {
			t.Fatalf("RefreshShoppingList failed: %v", err)
		}
		view, _ = a.ShoppingList(ctx)
		if got := findLine(t, view, "Tomate"); got.Amount != "8 pièce(s)" || !got.Checked {
			t.Errorf("Expected 8 checked tomatoes after refresh, got %+v", got)
		}
		if got := findLine(t, view, "Lessive"); got.Amount != "1 pièce(s)" || !got.Manual {
			t.Errorf("Expected 1 manual Lessive, got %+v", got)
		}
	})

	t.Run("UnplanKeepsManual", func(t *testing.T) {
		if err := a.ClearPlan(ctx); err != nil {
			t.Fatalf("ClearPlan failed: %v", err)
		}
		view, _ := a.ShoppingList(ctx)
		if view.Len() != 2 {
			t.Fatalf("Expected only the two manual lines, got:\n%s", view.String())
		}
		if got := findLine(t, view, "Tomate"); got.Amount != "2 pièce(s)" {
			t.Errorf("Expected the tomato adjustment (+2) to remain, got %+v", got)
		}
	})

	t.Run("RemoveItem", func(t *testing.T) {
		view, _ := a.ShoppingList(ctx)
		line := findLine(t, view, "Lessive")
		if err := a.RemoveItem(ctx, line.ItemID); err != nil {
			t.Fatalf("RemoveItem failed: %v", err)
		}
		if err := a.RemoveItem(ctx, line.ItemID); !errors.Is(err, ErrUnknownItem) {
			t.Errorf("Expected ErrUnknownItem, got %v", err)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		days, err := a.DailyRuns(ctx, 1)
		if err != nil {
			t.Fatalf("DailyRuns failed: %v", err)
		}
		if len(days) != 1 || days[0].Runs < 4 {
			t.Errorf("Expected today's runs to be recorded, got %+v", days)
		}
		if a.Health().DataBytes == 0 {
			t.Error("Expected data files to have a size")
		}
	})
}

func TestPlanMealErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, _, err := f.app.PlanMeal(ctx, "Cassoulet", 0, planner.Lunch, 2); !errors.Is(err, ErrUnknownRecipe) {
		t.Errorf("Expected ErrUnknownRecipe, got %v", err)
	}
	if _, _, err := f.app.PlanMeal(ctx, "Brouillon", 0, planner.Lunch, 2); !errors.Is(err, ErrIncompleteRecipe) {
		t.Errorf("Expected ErrIncompleteRecipe, got %v", err)
	}
	if _, _, err := f.app.PlanMeal(ctx, "Pâtes à la tomate", 0, planner.Lunch, 0); !errors.Is(err, planner.ErrInvalidMeal) {
		t.Errorf("Expected ErrInvalidMeal, got %v", err)
	}
	if _, err := f.app.BuyArticle(ctx, "Chocolat", 1); !errors.Is(err, ErrUnknownArticle) {
		t.Errorf("Expected ErrUnknownArticle, got %v", err)
	}
	if err := f.app.EditItem(ctx, uuid.New(), 3); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Expected ErrUnknownItem, got %v", err)
	}
}

func TestDeleteRecipeUnplansMeals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, _, err := f.app.PlanMeal(ctx, "Pâtes à la tomate", 4, planner.Dinner, 2); err != nil {
		t.Fatalf("PlanMeal failed: %v", err)
	}
	if err := f.app.DeleteRecipe(ctx, f.recipe.ID); err != nil {
		t.Fatalf("DeleteRecipe failed: %v", err)
	}
	week, _ := f.app.WeekPlan(ctx)
	if out := FormatWeek(week); out != "Aucun repas planifié.\n" {
		t.Errorf("Expected an empty week, got:\n%s", out)
	}
	view, _ := f.app.ShoppingList(ctx)
	if view.Len() != 0 {
		t.Errorf("Expected an empty list, got:\n%s", view.String())
	}
}

func findLine(t *testing.T, v *ShoppingView, name string) ListLine {
	t.Helper()
	for _, s := range v.Sections {
		for _, l := range s.Lines {
			if l.Name == name {
				return l
			}
		}
	}
	t.Fatalf("Line %q not found in:\n%s", name, v.String())
	return ListLine{}
}
