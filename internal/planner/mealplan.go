package planner

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MealType is the slot of the day a recipe is planned for.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// MealTypes lists the slots in the order of the day.
var MealTypes = []MealType{Breakfast, Lunch, Dinner}

// Label returns the French display label of the slot.
func (m MealType) Label() string {
	switch m {
	case Breakfast:
		return "Petit-déjeuner"
	case Lunch:
		return "Déjeuner"
	case Dinner:
		return "Dîner"
	}
	return string(m)
}

// Valid reports whether m is one of the known slots.
func (m MealType) Valid() bool {
	return m == Breakfast || m == Lunch || m == Dinner
}

// ParseMealType accepts the identifier or the French label, case-insensitively.
func ParseMealType(s string) (MealType, error) {
	for _, m := range MealTypes {
		if equalFold(s, string(m)) || equalFold(s, m.Label()) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

var dayNames = [7]string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi", "Dimanche"}

// DayName returns the French name of a day index (0 = Monday).
func DayName(day int) string {
	if day < 0 || day >= len(dayNames) {
		return fmt.Sprintf("Jour %d", day)
	}
	return dayNames[day]
}

// ParseDay accepts a day index (0-6) or a French day name.
func ParseDay(s string) (int, error) {
	for i, name := range dayNames {
		if equalFold(s, name) {
			return i, nil
		}
	}
	var day int
	if _, err := fmt.Sscanf(s, "%d", &day); err != nil || day < 0 || day > 6 {
		return 0, fmt.Errorf("unknown day %q", s)
	}
	return day, nil
}

// PlannedMeal is a recipe assigned to a day and slot for a number of people.
type PlannedMeal struct {
	ID        uuid.UUID `json:"id"`
	RecipeID  uuid.UUID `json:"recipe_id"`
	Headcount int       `json:"headcount"`
	Day       int       `json:"day"`
	MealType  MealType  `json:"meal_type"`
}

// Validate checks the meal can be planned.
func (m PlannedMeal) Validate() error {
	switch {
	case m.RecipeID == uuid.Nil:
		return fmt.Errorf("%w: missing recipe", ErrInvalidMeal)
	case m.Headcount <= 0:
		return fmt.Errorf("%w: headcount must be positive, got %d", ErrInvalidMeal, m.Headcount)
	case m.Day < 0 || m.Day > 6:
		return fmt.Errorf("%w: day must be between 0 and 6, got %d", ErrInvalidMeal, m.Day)
	case !m.MealType.Valid():
		return fmt.Errorf("%w: unknown meal type %q", ErrInvalidMeal, m.MealType)
	}
	return nil
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}
