package app

import (
	"context"
	"errors"
	"fmt"

	"meal-planner/internal/catalog"
)

// similarityDistance bounds the edit distance of "did you mean" suggestions.
const similarityDistance = 2

// ErrSameArticle is returned when an article would be merged into itself.
var ErrSameArticle = errors.New("cannot merge an article into itself")

// Recipes returns the recipes that can be planned, ordered by name.
func (a *App) Recipes(ctx context.Context) ([]catalog.Recipe, error) {
	return a.recipes.ListCompleteRecipes(ctx)
}

// RemoveRecipe deletes the recipe best matching name, unplanning its meals.
// Recipes without ingredients can be removed too.
func (a *App) RemoveRecipe(ctx context.Context, name string) (*catalog.Recipe, error) {
	all, err := a.recipes.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	rec := catalog.CheckForSimilarRecipe(name, all)
	if rec == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecipe, name)
	}
	if err := a.DeleteRecipe(ctx, rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

// SimilarArticles lists the articles whose name is a couple of edits away
// from name.
func (a *App) SimilarArticles(ctx context.Context, name string) ([]catalog.Article, error) {
	all, err := a.recipes.ListArticles(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.FindSimilar(name, all, similarityDistance), nil
}

// MergeArticles folds the duplicate article into the kept one and refreshes
// the shopping list. Both names must match an article exactly, ignoring case
// and accents, since fuzzy matching would resolve near-duplicates to the
// same article.
func (a *App) MergeArticles(ctx context.Context, keepName, duplicateName string) (keep, duplicate *catalog.Article, err error) {
	all, err := a.recipes.ListArticles(ctx)
	if err != nil {
		return nil, nil, err
	}
	if keep = articleByName(keepName, all); keep == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownArticle, keepName)
	}
	if duplicate = articleByName(duplicateName, all); duplicate == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownArticle, duplicateName)
	}
	if keep.ID == duplicate.ID {
		return nil, nil, ErrSameArticle
	}

	if err := a.recipes.MergeArticles(ctx, keep.ID, duplicate.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to merge %s into %s: %w", duplicate.Name, keep.Name, err)
	}
	a.log.Info("Articles merged", "kept", keep.Name, "removed", duplicate.Name)

	if _, err := a.RefreshShoppingList(ctx); err != nil {
		return keep, duplicate, err
	}
	return keep, duplicate, nil
}

func articleByName(name string, articles []catalog.Article) *catalog.Article {
	n := catalog.Normalize(name)
	for i := range articles {
		if catalog.Normalize(articles[i].Name) == n {
			return &articles[i]
		}
	}
	return nil
}
