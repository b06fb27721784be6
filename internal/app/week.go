package app

import (
	"context"
	"fmt"
	"strings"

	"meal-planner/internal/planner"
)

// PlannedLine is a planned meal with its recipe name resolved.
type PlannedLine struct {
	Meal       planner.PlannedMeal
	RecipeName string
}

// DayPlan lists the meals of one day ordered by slot.
type DayPlan struct {
	Day   int
	Name  string
	Meals []PlannedLine
}

// WeekPlan returns the seven days of the week with their meals. Meals whose
// recipe was deleted show a placeholder name.
func (a *App) WeekPlan(ctx context.Context) ([]DayPlan, error) {
	week := make([]DayPlan, 7)
	for day := range week {
		week[day] = DayPlan{Day: day, Name: planner.DayName(day)}
		for _, m := range a.meals.MealsForDay(day) {
			name := "Recette supprimée"
			rec, err := a.recipes.GetRecipe(ctx, m.RecipeID)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				name = rec.Name
			}
			week[day].Meals = append(week[day].Meals, PlannedLine{Meal: m, RecipeName: name})
		}
	}
	return week, nil
}

// FormatWeek renders the plan as plain text, one numbered line per meal.
// Empty days are omitted.
func FormatWeek(week []DayPlan) string {
	var sb strings.Builder
	n := 0
	for _, d := range week {
		if len(d.Meals) == 0 {
			continue
		}
		sb.WriteString(d.Name + "\n")
		for _, l := range d.Meals {
			n++
			fmt.Fprintf(&sb, "  %d. %s: %s (%d pers.)\n", n, l.Meal.MealType.Label(), l.RecipeName, l.Meal.Headcount)
		}
	}
	if n == 0 {
		return "Aucun repas planifié.\n"
	}
	return sb.String()
}

// MealByNumber returns the meal shown at position n (1-based) by FormatWeek.
func MealByNumber(week []DayPlan, n int) (planner.PlannedMeal, bool) {
	i := 0
	for _, d := range week {
		for _, l := range d.Meals {
			i++
			if i == n {
				return l.Meal, true
			}
		}
	}
	return planner.PlannedMeal{}, false
}
