package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Provider resolves catalog entities by id. Deleted or unknown entities are
// reported as nil with a nil error.
type Provider interface {
	GetRecipe(ctx context.Context, id uuid.UUID) (*Recipe, error)
	GetArticle(ctx context.Context, id uuid.UUID) (*Article, error)
}

// Memory is an in-process catalog. It doubles as the read-only snapshot the
// shopping engine works on, so lookups never touch storage.
type Memory struct {
	mu       sync.RWMutex
	recipes  map[uuid.UUID]*Recipe
	articles map[uuid.UUID]*Article
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		recipes:  make(map[uuid.UUID]*Recipe),
		articles: make(map[uuid.UUID]*Article),
	}
}

// AddArticle stores a copy of the article, assigning an id when missing.
func (m *Memory) AddArticle(a Article) Article {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[a.ID] = &a
	return a
}

// AddRecipe stores a copy of the recipe, assigning ids when missing.
func (m *Memory) AddRecipe(r Recipe) Recipe {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	ings := make([]RecipeIngredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		if ing.ID == uuid.Nil {
			ing.ID = uuid.New()
		}
		ing.RecipeID = r.ID
		ings[i] = ing
	}
	r.Ingredients = ings

	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipes[r.ID] = &r
	return r
}

// DeleteRecipe removes a recipe. Unknown ids are ignored.
func (m *Memory) DeleteRecipe(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recipes, id)
}

// LookupRecipe returns the recipe with the given id, if present.
func (m *Memory) LookupRecipe(id uuid.UUID) (*Recipe, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recipes[id]
	return r, ok
}

// LookupArticle returns the article with the given id, if present.
func (m *Memory) LookupArticle(id uuid.UUID) (*Article, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.articles[id]
	return a, ok
}

// Articles returns all known articles.
func (m *Memory) Articles() []Article {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Article, 0, len(m.articles))
	for _, a := range m.articles {
		out = append(out, *a)
	}
	return out
}

// GetRecipe implements Provider.
func (m *Memory) GetRecipe(_ context.Context, id uuid.UUID) (*Recipe, error) {
	r, ok := m.LookupRecipe(id)
	if !ok {
		return nil, nil
	}
	return r, nil
}

// GetArticle implements Provider.
func (m *Memory) GetArticle(_ context.Context, id uuid.UUID) (*Article, error) {
	a, ok := m.LookupArticle(id)
	if !ok {
		return nil, nil
	}
	return a, nil
}

// Snapshot loads the given recipes and every article they reference from p
// into a fresh Memory. Missing recipes and articles are skipped.
func Snapshot(ctx context.Context, p Provider, recipeIDs []uuid.UUID) (*Memory, error) {
	snap := NewMemory()
	for _, id := range recipeIDs {
		if _, done := snap.LookupRecipe(id); done {
			continue
		}
		rec, err := p.GetRecipe(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get recipe %s: %w", id, err)
		}
		if rec == nil {
			continue
		}
		snap.AddRecipe(*rec)

		for _, articleID := range rec.ArticleIDs() {
			if _, done := snap.LookupArticle(articleID); done {
				continue
			}
			art, err := p.GetArticle(ctx, articleID)
			if err != nil {
				return nil, fmt.Errorf("failed to get article %s: %w", articleID, err)
			}
			if art != nil {
				snap.AddArticle(*art)
			}
		}
	}
	return snap, nil
}
