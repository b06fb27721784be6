package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"meal-planner/internal/catalog"
	"meal-planner/internal/shopping"
	"meal-planner/internal/units"
)

// ListLine is one displayed shopping list entry.
type ListLine struct {
	Number  int
	ItemID  uuid.UUID
	Name    string
	Amount  string
	Checked bool
	Manual  bool
}

// ListSection is one category of the displayed list.
type ListSection struct {
	Category string
	Lines    []ListLine
}

// ShoppingView is the shopping list ready for display.
type ShoppingView struct {
	ModifiedAt time.Time
	Sections   []ListSection
}

// Line returns the line numbered n.
func (v *ShoppingView) Line(n int) (ListLine, bool) {
	for _, s := range v.Sections {
		for _, l := range s.Lines {
			if l.Number == n {
				return l, true
			}
		}
	}
	return ListLine{}, false
}

// Len is the number of lines.
func (v *ShoppingView) Len() int {
	n := 0
	for _, s := range v.Sections {
		n += len(s.Lines)
	}
	return n
}

// String renders the view as plain text.
func (v *ShoppingView) String() string {
	if v.Len() == 0 {
		return "Liste de courses vide.\n"
	}
	var sb strings.Builder
	for _, s := range v.Sections {
		sb.WriteString(s.Category + "\n")
		for _, l := range s.Lines {
			box := "[ ]"
			if l.Checked {
				box = "[x]"
			}
			fmt.Fprintf(&sb, "  %d. %s %s: %s\n", l.Number, box, l.Name, l.Amount)
		}
	}
	return sb.String()
}

// ShoppingList returns the current list grouped by category, with
// quantities converted to shopping units.
func (a *App) ShoppingList(ctx context.Context) (*ShoppingView, error) {
	list, err := a.updater.Current(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return &ShoppingView{}, nil
	}
	return a.view(ctx, list)
}

func (a *App) view(ctx context.Context, list *shopping.List) (*ShoppingView, error) {
	articles := catalog.NewMemory()
	for _, it := range list.Items {
		art, err := a.recipes.GetArticle(ctx, it.ArticleID)
		if err != nil {
			return nil, err
		}
		if art != nil {
			articles.AddArticle(*art)
		}
	}

	v := &ShoppingView{ModifiedAt: list.ModifiedAt}
	n := 0
	for _, g := range shopping.GroupByCategory(list.Items, articles) {
		section := ListSection{Category: g.Category}
		for _, l := range g.Lines {
			n++
			unit := ""
			if l.Article != nil {
				unit = l.Article.Unit
			}
			section.Lines = append(section.Lines, ListLine{
				Number:  n,
				ItemID:  l.Item.ID,
				Name:    l.Name(),
				Amount:  units.FormatDisplay(l.Name(), unit, shopping.ClampedQuantity(l.Item)),
				Checked: l.Item.Checked,
				Manual:  l.Item.ManuallyAdded,
			})
		}
		v.Sections = append(v.Sections, section)
	}
	return v, nil
}

// BuyArticle adds qty of the article best matching name to the list by hand.
func (a *App) BuyArticle(ctx context.Context, name string, qty float64) (*catalog.Article, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %v", qty)
	}
	all, err := a.recipes.ListArticles(ctx)
	if err != nil {
		return nil, err
	}
	art := catalog.CheckForSimilar(name, all)
	if art == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArticle, name)
	}

	_, err = a.updater.Modify(ctx, func(l *shopping.List) error {
		l.AddManual(art.ID, qty, a.updater.Now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add %s: %w", art.Name, err)
	}
	a.log.Info("Article added by hand", "article", art.Name, "quantity", qty)
	return art, nil
}

// EditItem sets the displayed quantity of a list line; the difference with
// the recipe demand is kept as a manual adjustment.
func (a *App) EditItem(ctx context.Context, itemID uuid.UUID, qty float64) error {
	return a.modifyItem(ctx, itemID, func(l *shopping.List, it *shopping.Item) {
		shopping.ApplyManualEdit(it, qty)
		l.ModifiedAt = a.updater.Now()
	})
}

// ToggleItem flips the checked state of a list line and returns it.
func (a *App) ToggleItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var checked bool
	err := a.modifyItem(ctx, itemID, func(l *shopping.List, it *shopping.Item) {
		checked = l.ToggleChecked(it.ID, a.updater.Now())
	})
	return checked, err
}

// RemoveItem deletes a list line.
func (a *App) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	return a.modifyItem(ctx, itemID, func(l *shopping.List, it *shopping.Item) {
		l.Remove(it.ID, a.updater.Now())
	})
}

// NudgeItem moves the quantity of a list line one step up (direction > 0) or
// down. The step follows the unit the line is displayed in, so 1.5 kg of
// flour moves by 100 g. The new quantity is returned in display form.
func (a *App) NudgeItem(ctx context.Context, itemID uuid.UUID, direction int) (string, error) {
	list, err := a.updater.Current(ctx)
	if err != nil {
		return "", err
	}
	if list == nil {
		return "", shopping.ErrNoList
	}
	it := list.Item(itemID)
	if it == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	art, err := a.recipes.GetArticle(ctx, it.ArticleID)
	if err != nil {
		return "", err
	}
	if art == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownArticle, it.ArticleID)
	}
	step := nudgeStep(art, shopping.ClampedQuantity(it))
	if direction < 0 {
		step = -step
	}

	var amount string
	err = a.modifyItem(ctx, itemID, func(l *shopping.List, it *shopping.Item) {
		shopping.ApplyManualEdit(it, shopping.ClampedQuantity(it)+step)
		l.ModifiedAt = a.updater.Now()
		amount = units.FormatDisplay(art.Name, art.Unit, shopping.ClampedQuantity(it))
	})
	return amount, err
}

// nudgeStep returns the step in the article's own unit.
func nudgeStep(art *catalog.Article, qty float64) float64 {
	_, shown := units.ToDisplayUnit(art.Name, art.Unit, qty)
	if step, ok := units.Scale(units.StepFor(shown), shown, art.Unit); ok {
		return step
	}
	return units.StepFor(art.Unit)
}

// ResetShoppingList throws the current list away, manual edits included, and
// rebuilds it from the planned meals.
func (a *App) ResetShoppingList(ctx context.Context) (shopping.Changes, error) {
	if err := a.updater.Discard(ctx); err != nil && !errors.Is(err, shopping.ErrNoList) {
		return shopping.Changes{}, fmt.Errorf("failed to discard shopping list: %w", err)
	}
	return a.RefreshShoppingList(ctx)
}

func (a *App) modifyItem(ctx context.Context, itemID uuid.UUID, fn func(*shopping.List, *shopping.Item)) error {
	_, err := a.updater.Modify(ctx, func(l *shopping.List) error {
		it := l.Item(itemID)
		if it == nil {
			return fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
		}
		fn(l, it)
		return nil
	})
	return err
}
