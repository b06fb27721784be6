package shopping

import (
	"github.com/google/uuid"

	"meal-planner/internal/catalog"
	"meal-planner/internal/planner"
)

// Demand is the recipe-derived quantity needed per article id.
type Demand map[uuid.UUID]float64

// RecipeLookup resolves recipes from a catalog snapshot.
type RecipeLookup interface {
	LookupRecipe(id uuid.UUID) (*catalog.Recipe, bool)
}

// Aggregate sums the per-person quantities of every planned meal's recipe,
// scaled by headcount. Meals whose recipe cannot be resolved are skipped.
// Optional ingredients count like required ones.
func Aggregate(meals []planner.PlannedMeal, recipes RecipeLookup) Demand {
	demand := make(Demand)
	for _, meal := range meals {
		rec, ok := recipes.LookupRecipe(meal.RecipeID)
		if !ok || rec == nil {
			continue
		}
		for _, ing := range rec.Ingredients {
			if ing.ArticleID == uuid.Nil {
				continue
			}
			demand[ing.ArticleID] += ing.QuantityPerPerson * float64(meal.Headcount)
		}
	}
	return demand
}

// UnresolvedMeals returns the meals whose recipe is missing from recipes.
func UnresolvedMeals(meals []planner.PlannedMeal, recipes RecipeLookup) []planner.PlannedMeal {
	var out []planner.PlannedMeal
	for _, meal := range meals {
		if rec, ok := recipes.LookupRecipe(meal.RecipeID); !ok || rec == nil {
			out = append(out, meal)
		}
	}
	return out
}
