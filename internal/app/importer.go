package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"meal-planner/internal/catalog"
	"meal-planner/internal/clipper"
	"meal-planner/internal/units"
)

// CatalogFile is the JSON document accepted by ImportCatalog.
type CatalogFile struct {
	Articles []catalog.Article `json:"articles"`
	Recipes  []RecipeFile      `json:"recipes"`
}

// RecipeFile is a recipe whose ingredients reference articles by name.
type RecipeFile struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Ingredients []IngredientFile `json:"ingredients"`
}

// IngredientFile is one line of a RecipeFile.
type IngredientFile struct {
	Article           string  `json:"article"`
	QuantityPerPerson float64 `json:"quantity_per_person"`
	Optional          bool    `json:"optional"`
}

// ImportSummary counts what ImportCatalog wrote.
type ImportSummary struct {
	Articles int
	Recipes  int
}

// ImportCatalog reads a CatalogFile from r and upserts its content in one
// transaction, so a failing entry leaves the catalog untouched. Articles and
// recipes are matched by normalized name so re-importing the same file
// updates instead of duplicating.
func (a *App) ImportCatalog(ctx context.Context, r io.Reader) (ImportSummary, error) {
	var file CatalogFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return ImportSummary{}, fmt.Errorf("failed to decode catalog: %w", err)
	}

	var summary ImportSummary
	err := a.recipes.InTx(ctx, func(repo *catalog.Repository) error {
		var err error
		summary, err = importCatalog(ctx, repo, file)
		return err
	})
	if err != nil {
		return ImportSummary{}, err
	}
	a.log.Info("Catalog imported", "articles", summary.Articles, "recipes", summary.Recipes)
	return summary, nil
}

func importCatalog(ctx context.Context, repo *catalog.Repository, file CatalogFile) (ImportSummary, error) {
	existing, err := repo.ListArticles(ctx)
	if err != nil {
		return ImportSummary{}, err
	}
	byName := make(map[string]catalog.Article, len(existing))
	for _, art := range existing {
		byName[catalog.Normalize(art.Name)] = art
	}

	var summary ImportSummary
	for _, art := range file.Articles {
		if prev, ok := byName[catalog.Normalize(art.Name)]; ok {
			art.ID = prev.ID
		}
		if art.Category == "" {
			art.Category = catalog.DefaultCategory
		}
		if err := repo.SaveArticle(ctx, &art); err != nil {
			return summary, err
		}
		byName[catalog.Normalize(art.Name)] = art
		summary.Articles++
	}

	recipes, err := repo.ListRecipes(ctx)
	if err != nil {
		return summary, err
	}
	recipeByName := make(map[string]catalog.Recipe, len(recipes))
	for _, rec := range recipes {
		recipeByName[catalog.Normalize(rec.Name)] = rec
	}

	for _, rf := range file.Recipes {
		rec := catalog.Recipe{Name: rf.Name, Description: rf.Description}
		if prev, ok := recipeByName[catalog.Normalize(rf.Name)]; ok {
			rec.ID = prev.ID
			rec.Photo = prev.Photo
		}
		for _, ing := range rf.Ingredients {
			art, ok := byName[catalog.Normalize(ing.Article)]
			if !ok {
				return summary, fmt.Errorf("recipe %q: %w: %q", rf.Name, ErrUnknownArticle, ing.Article)
			}
			rec.Ingredients = append(rec.Ingredients, catalog.RecipeIngredient{
				ArticleID:         art.ID,
				QuantityPerPerson: ing.QuantityPerPerson,
				Optional:          ing.Optional,
			})
		}
		if err := repo.SaveRecipe(ctx, &rec); err != nil {
			return summary, err
		}
		summary.Recipes++
	}
	return summary, nil
}

// ClipResult describes a recipe imported from a web page.
type ClipResult struct {
	Recipe *catalog.Recipe
	// Unmatched lists the ingredient lines that named no known article.
	Unmatched []string
}

// ClipRecipe imports the recipe published at url. Ingredient lines are
// matched to catalog articles by approximate name and their quantities are
// scaled to the article's unit and divided by the page's servings. A recipe
// with the same normalized name is replaced.
func (a *App) ClipRecipe(ctx context.Context, url string) (*ClipResult, error) {
	clipped, err := a.clipper.ClipURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to clip %s: %w", url, err)
	}
	return a.saveClipped(ctx, clipped)
}

func (a *App) saveClipped(ctx context.Context, clipped *clipper.ClippedRecipe) (*ClipResult, error) {
	articles, err := a.recipes.ListArticles(ctx)
	if err != nil {
		return nil, err
	}

	rec := &catalog.Recipe{Name: clipped.Name, Description: clipped.Description}
	if clipped.SourceURL != "" {
		rec.Description = strings.TrimSpace(rec.Description + "\n" + clipped.SourceURL)
	}
	existing, err := a.recipes.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	for _, prev := range existing {
		if catalog.Normalize(prev.Name) == catalog.Normalize(rec.Name) {
			rec.ID = prev.ID
			rec.Photo = prev.Photo
			break
		}
	}

	servings := float64(max(clipped.Servings, 1))
	result := &ClipResult{Recipe: rec}
	index := make(map[uuid.UUID]int)
	for _, ing := range clipped.Ingredients {
		art := matchArticle(ing.Name, articles)
		if art == nil {
			result.Unmatched = append(result.Unmatched, ing.Raw)
			continue
		}

		qty := ing.Quantity
		if qty <= 0 {
			qty = 1
		}
		if ing.Unit != "" {
			scaled, ok := units.Scale(qty, ing.Unit, art.Unit)
			if !ok {
				a.log.Warn("Ingredient unit does not match article", "line", ing.Raw, "article", art.Name, "unit", art.Unit)
			} else {
				qty = scaled
			}
		}
		perPerson := qty / servings

		if i, ok := index[art.ID]; ok {
			rec.Ingredients[i].QuantityPerPerson += perPerson
			continue
		}
		index[art.ID] = len(rec.Ingredients)
		rec.Ingredients = append(rec.Ingredients, catalog.RecipeIngredient{
			ArticleID:         art.ID,
			QuantityPerPerson: perPerson,
		})
	}

	if err := a.recipes.SaveRecipe(ctx, rec); err != nil {
		return nil, err
	}
	a.log.Info("Recipe clipped", "recipe", rec.Name, "ingredients", len(rec.Ingredients), "unmatched", len(result.Unmatched))
	return result, nil
}

// matchArticle tries the full ingredient name, then its leading words.
func matchArticle(name string, articles []catalog.Article) *catalog.Article {
	if art := catalog.CheckForSimilar(name, articles); art != nil {
		return art
	}
	words := strings.Fields(name)
	for n := min(len(words)-1, 2); n >= 1; n-- {
		if art := catalog.CheckForSimilar(strings.Join(words[:n], " "), articles); art != nil {
			return art
		}
	}
	return nil
}
