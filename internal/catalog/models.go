package catalog

import "github.com/google/uuid"

// DefaultCategory groups articles that have no aisle assigned.
const DefaultCategory = "Autre"

// Article is a purchasable or consumable catalog entry.
type Article struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"` // supermarket aisle
	Unit     string    `json:"unit"`     // recipe-side unit of measure
	IsFood   bool      `json:"is_food"`
}

// RecipeIngredient says how much of an article a recipe needs for one person.
type RecipeIngredient struct {
	ID                uuid.UUID `json:"id"`
	RecipeID          uuid.UUID `json:"recipe_id"`
	ArticleID         uuid.UUID `json:"article_id"`
	QuantityPerPerson float64   `json:"quantity_per_person"`
	Optional          bool      `json:"optional"`
}

// Recipe is a named list of ingredients.
type Recipe struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Photo       []byte             `json:"-"`
	Ingredients []RecipeIngredient `json:"ingredients"`
}

// IsComplete reports whether the recipe can be offered for meal planning.
func (r *Recipe) IsComplete() bool {
	return len(r.Ingredients) > 0
}

// ArticleIDs returns the distinct article ids referenced by the recipe.
func (r *Recipe) ArticleIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(r.Ingredients))
	ids := make([]uuid.UUID, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		if ing.ArticleID == uuid.Nil {
			continue
		}
		if _, ok := seen[ing.ArticleID]; ok {
			continue
		}
		seen[ing.ArticleID] = struct{}{}
		ids = append(ids, ing.ArticleID)
	}
	return ids
}
