package shopping

import (
	"time"

	"github.com/google/uuid"
)

// ApplyManualEdit sets the quantity the user wants and attributes the whole
// difference to the manual layer, which may go negative. Negative input is
// treated as zero.
func ApplyManualEdit(it *Item, newQuantity float64) {
	if newQuantity < 0 {
		newQuantity = 0
	}
	recipePortion := it.Quantity - it.ManualQuantity
	it.ManualQuantity = newQuantity - recipePortion
	it.Quantity = newQuantity
	it.ManuallyAdded = true
}

// AddManual adds qty of an article by hand. An existing item for the article
// is increased, otherwise a new manual item is appended.
func (l *List) AddManual(articleID uuid.UUID, qty float64, now time.Time) *Item {
	if qty < 0 {
		qty = 0
	}
	l.ModifiedAt = now
	if it := l.ItemForArticle(articleID); it != nil {
		it.Quantity += qty
		it.ManualQuantity += qty
		it.ManuallyAdded = true
		return it
	}
	it := &Item{
		ID:             uuid.New(),
		ListID:         l.ID,
		ArticleID:      articleID,
		Quantity:       qty,
		ManuallyAdded:  true,
		ManualQuantity: qty,
	}
	l.Items = append(l.Items, it)
	return it
}

// ToggleChecked flips the checked state of an item and returns the new state.
// Unknown ids return false.
func (l *List) ToggleChecked(itemID uuid.UUID, now time.Time) bool {
	it := l.Item(itemID)
	if it == nil {
		return false
	}
	it.Checked = !it.Checked
	l.ModifiedAt = now
	return it.Checked
}

// Remove deletes an item from the list and returns it, or nil if unknown.
func (l *List) Remove(itemID uuid.UUID, now time.Time) *Item {
	for i, it := range l.Items {
		if it.ID == itemID {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			l.ModifiedAt = now
			return it
		}
	}
	return nil
}
