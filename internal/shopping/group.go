package shopping

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"meal-planner/internal/catalog"
)

// ArticleLookup resolves articles from a catalog snapshot.
type ArticleLookup interface {
	LookupArticle(id uuid.UUID) (*catalog.Article, bool)
}

// Line is an item with its resolved article, ready for display.
type Line struct {
	Item    *Item
	Article *catalog.Article // nil when the article was deleted
}

// Name is the article name, or a placeholder for unknown articles.
func (l Line) Name() string {
	if l.Article == nil {
		return "Article inconnu"
	}
	return l.Article.Name
}

// CategoryGroup is one aisle of the list.
type CategoryGroup struct {
	Category string
	Lines    []Line
}

// GroupByCategory groups items by their article's category. Categories are
// sorted, items inside a category are sorted by article name. Items without a
// category land in catalog.DefaultCategory.
func GroupByCategory(items []*Item, articles ArticleLookup) []CategoryGroup {
	byCategory := make(map[string][]Line)
	for _, it := range items {
		art, ok := articles.LookupArticle(it.ArticleID)
		if !ok {
			art = nil
		}
		category := catalog.DefaultCategory
		if art != nil && strings.TrimSpace(art.Category) != "" {
			category = art.Category
		}
		byCategory[category] = append(byCategory[category], Line{Item: it, Article: art})
	}

	groups := make([]CategoryGroup, 0, len(byCategory))
	for category, lines := range byCategory {
		sort.SliceStable(lines, func(i, j int) bool {
			return strings.ToLower(lines[i].Name()) < strings.ToLower(lines[j].Name())
		})
		groups = append(groups, CategoryGroup{Category: category, Lines: lines})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Category < groups[j].Category
	})
	return groups
}
