package shopping

import (
	"time"

	"github.com/google/uuid"
)

// List is the consolidated shopping list derived from the planned meals.
type List struct {
	ID         uuid.UUID `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Items      []*Item   `json:"items"`
}

// Item is one article to buy. Quantity is the recipe demand plus the
// signed manual adjustment held in ManualQuantity.
type Item struct {
	ID             uuid.UUID `json:"id"`
	ListID         uuid.UUID `json:"list_id"`
	ArticleID      uuid.UUID `json:"article_id"`
	Quantity       float64   `json:"quantity"`
	Checked        bool      `json:"checked"`
	ManuallyAdded  bool      `json:"manually_added"`
	ManualQuantity float64   `json:"manual_quantity"`
}

// NewList creates an empty list.
func NewList(now time.Time) *List {
	return &List{ID: uuid.New(), CreatedAt: now, ModifiedAt: now}
}

// Item returns the item with the given id.
func (l *List) Item(id uuid.UUID) *Item {
	for _, it := range l.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// ItemForArticle returns the item holding the given article.
func (l *List) ItemForArticle(articleID uuid.UUID) *Item {
	for _, it := range l.Items {
		if it.ArticleID == articleID {
			return it
		}
	}
	return nil
}

// RecipePortion is the part of the quantity implied by the planned meals.
func (it *Item) RecipePortion() float64 {
	return it.Quantity - it.ManualQuantity
}

// ClampedQuantity is the quantity as it may be shown or bought: never negative.
func ClampedQuantity(it *Item) float64 {
	if it.Quantity < 0 {
		return 0
	}
	return it.Quantity
}
