package shopping

import (
	"testing"

	"github.com/google/uuid"

	"meal-planner/internal/catalog"
	"meal-planner/internal/planner"
)

func TestAggregate(t *testing.T) {
	mem := catalog.NewMemory()
	pates := mem.AddArticle(catalog.Article{Name: "Pâtes", Unit: "g"})
	parmesan := mem.AddArticle(catalog.Article{Name: "Parmesan", Unit: "g"})
	r := mem.AddRecipe(catalog.Recipe{
		Name: "Pâtes au parmesan",
		Ingredients: []catalog.RecipeIngredient{
			{ArticleID: pates.ID, QuantityPerPerson: 100},
			{ArticleID: parmesan.ID, QuantityPerPerson: 10, Optional: true},
			{ArticleID: uuid.Nil, QuantityPerPerson: 99},
		},
	})

	t.Run("ScalesByHeadcount", func(t *testing.T) {
		meals := []planner.PlannedMeal{
			{RecipeID: r.ID, Headcount: 2},
			{RecipeID: r.ID, Headcount: 3},
		}
		demand := Aggregate(meals, mem)
		if demand[pates.ID] != 500 {
			t.Errorf("Expected 500 g of pasta, got %v", demand[pates.ID])
		}
		if demand[parmesan.ID] != 50 {
			t.Errorf("Expected optional parmesan to count (50), got %v", demand[parmesan.ID])
		}
		if len(demand) != 2 {
			t.Errorf("Expected 2 articles in demand, got %d", len(demand))
		}
	})

	t.Run("SkipsUnresolvedRecipes", func(t *testing.T) {
		missing := planner.PlannedMeal{RecipeID: uuid.New(), Headcount: 4}
		meals := []planner.PlannedMeal{missing, {RecipeID: r.ID, Headcount: 1}}
		demand := Aggregate(meals, mem)
		if demand[pates.ID] != 100 {
			t.Errorf("Expected 100 g of pasta, got %v", demand[pates.ID])
		}
		unresolved := UnresolvedMeals(meals, mem)
		if len(unresolved) != 1 || unresolved[0].RecipeID != missing.RecipeID {
			t.Errorf("Expected the missing meal to be reported, got %+v", unresolved)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if demand := Aggregate(nil, mem); len(demand) != 0 {
			t.Errorf("Expected empty demand, got %v", demand)
		}
	})
}
