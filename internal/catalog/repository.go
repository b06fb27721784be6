package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is a SQLite-backed catalog of articles and recipes.
type Repository struct {
	db *sql.DB
	tx *sql.Tx // set inside InTx
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// InTx runs fn with a repository whose every call shares one transaction.
// Nothing fn wrote is kept when it returns an error.
func (r *Repository) InTx(ctx context.Context, fn func(repo *Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Repository{db: r.db, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog changes: %w", err)
	}
	return nil
}

func (r *Repository) q() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// SaveArticle inserts or updates an article. A missing id is generated.
func (r *Repository) SaveArticle(ctx context.Context, a *Article) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	const query = `
INSERT INTO articles (id, name, category, unit, is_food)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    category = excluded.category,
    unit = excluded.unit,
    is_food = excluded.is_food`
	if _, err := r.q().ExecContext(ctx, query, a.ID, a.Name, a.Category, a.Unit, a.IsFood); err != nil {
		return fmt.Errorf("failed to save article %q: %w", a.Name, err)
	}
	return nil
}

// GetArticle retrieves an article by its ID.
func (r *Repository) GetArticle(ctx context.Context, id uuid.UUID) (*Article, error) {
	const query = `SELECT id, name, category, unit, is_food FROM articles WHERE id = ?`
	var a Article
	err := r.q().QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.Category, &a.Unit, &a.IsFood)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Article not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article by ID: %w", err)
	}
	return &a, nil
}

// ListArticles returns every article ordered by name.
func (r *Repository) ListArticles(ctx context.Context) ([]Article, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT id, name, category, unit, is_food FROM articles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Name, &a.Category, &a.Unit, &a.IsFood); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// SaveRecipe inserts or updates a recipe and replaces its ingredient list.
func (r *Repository) SaveRecipe(ctx context.Context, rec *Recipe) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	return r.InTx(ctx, func(repo *Repository) error {
		const upsert = `
INSERT INTO recipes (id, name, description, photo, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    description = excluded.description,
    photo = excluded.photo,
    updated_at = excluded.updated_at`
		if _, err := repo.q().ExecContext(ctx, upsert, rec.ID, rec.Name, rec.Description, rec.Photo, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to save recipe %q: %w", rec.Name, err)
		}

		if _, err := repo.q().ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, rec.ID); err != nil {
			return fmt.Errorf("failed to clear ingredients of recipe %q: %w", rec.Name, err)
		}

		const insertIngredient = `
INSERT INTO recipe_ingredients (id, recipe_id, article_id, quantity, optional, position)
VALUES (?, ?, ?, ?, ?, ?)`
		for i := range rec.Ingredients {
			ing := &rec.Ingredients[i]
			if ing.ID == uuid.Nil {
				ing.ID = uuid.New()
			}
			ing.RecipeID = rec.ID
			if _, err := repo.q().ExecContext(ctx, insertIngredient, ing.ID, ing.RecipeID, ing.ArticleID, ing.QuantityPerPerson, ing.Optional, i); err != nil {
				return fmt.Errorf("failed to insert ingredient of recipe %q: %w", rec.Name, err)
			}
		}
		return nil
	})
}

// GetRecipe retrieves a recipe and its ingredients by ID.
func (r *Repository) GetRecipe(ctx context.Context, id uuid.UUID) (*Recipe, error) {
	const query = `SELECT id, name, description, photo FROM recipes WHERE id = ?`
	var rec Recipe
	err := r.q().QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Name, &rec.Description, &rec.Photo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Recipe not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	ings, err := r.ingredients(ctx, `WHERE recipe_id = ?`, id)
	if err != nil {
		return nil, err
	}
	rec.Ingredients = ings[rec.ID]
	return &rec, nil
}

// ListRecipes retrieves all recipes with their ingredients, ordered by name.
func (r *Repository) ListRecipes(ctx context.Context) ([]Recipe, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT id, name, description, photo FROM recipes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	var recipes []Recipe
	for rows.Next() {
		var rec Recipe
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.Photo); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	rows.Close()

	ings, err := r.ingredients(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].Ingredients = ings[recipes[i].ID]
	}
	return recipes, nil
}

// ListCompleteRecipes returns the recipes that have at least one ingredient,
// i.e. the ones that may be planned.
func (r *Repository) ListCompleteRecipes(ctx context.Context) ([]Recipe, error) {
	all, err := r.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	complete := all[:0]
	for _, rec := range all {
		if rec.IsComplete() {
			complete = append(complete, rec)
		}
	}
	return complete, nil
}

// DeleteRecipe removes a recipe and its ingredients.
func (r *Repository) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	return r.InTx(ctx, func(repo *Repository) error {
		tx := repo.q()

		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete ingredients of recipe %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete recipe %s: %w", id, err)
		}
		return nil
	})
}

// MergeArticles folds the duplicate article remove into keep: recipe
// ingredients are re-pointed, shopping items are re-pointed or summed into
// the kept article's item on the same list, and remove is deleted.
func (r *Repository) MergeArticles(ctx context.Context, keep, remove uuid.UUID) error {
	if keep == remove {
		return nil
	}

	return r.InTx(ctx, func(repo *Repository) error {
		tx := repo.q()

		if _, err := tx.ExecContext(ctx, `UPDATE recipe_ingredients SET article_id = ? WHERE article_id = ?`, keep, remove); err != nil {
			return fmt.Errorf("failed to re-point ingredients: %w", err)
		}

		// Items of remove whose list already holds keep are summed into it.
		const sumInto = `
UPDATE shopping_list_items AS k SET
    quantity = k.quantity + d.quantity,
    manual_quantity = k.manual_quantity + d.manual_quantity,
    manually_added = MAX(k.manually_added, d.manually_added)
FROM shopping_list_items AS d
WHERE k.article_id = ? AND d.article_id = ? AND k.list_id = d.list_id`
		if _, err := tx.ExecContext(ctx, sumInto, keep, remove); err != nil {
			return fmt.Errorf("failed to merge shopping items: %w", err)
		}
		const dropMerged = `
DELETE FROM shopping_list_items
WHERE article_id = ?
  AND list_id IN (SELECT list_id FROM shopping_list_items WHERE article_id = ?)`
		if _, err := tx.ExecContext(ctx, dropMerged, remove, keep); err != nil {
			return fmt.Errorf("failed to drop merged shopping items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE shopping_list_items SET article_id = ? WHERE article_id = ?`, keep, remove); err != nil {
			return fmt.Errorf("failed to re-point shopping items: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, remove); err != nil {
			return fmt.Errorf("failed to delete article %s: %w", remove, err)
		}
		return nil
	})
}

// ingredients loads ingredient rows matching the optional where clause,
// grouped by recipe id and kept in their stored order.
func (r *Repository) ingredients(ctx context.Context, where string, args ...any) (map[uuid.UUID][]RecipeIngredient, error) {
	query := `SELECT id, recipe_id, article_id, quantity, optional FROM recipe_ingredients ` + where + ` ORDER BY recipe_id, position`
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]RecipeIngredient)
	for rows.Next() {
		var ing RecipeIngredient
		if err := rows.Scan(&ing.ID, &ing.RecipeID, &ing.ArticleID, &ing.QuantityPerPerson, &ing.Optional); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		out[ing.RecipeID] = append(out[ing.RecipeID], ing)
	}
	return out, rows.Err()
}
