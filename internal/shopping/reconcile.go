package shopping

import (
	"bytes"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Changes reports what a reconciliation did, so the caller can persist it.
type Changes struct {
	Created   []*Item
	Updated   []*Item
	Collapsed []*Item
	Removed   []*Item
}

// Empty reports whether the pass left the items as they were.
func (c Changes) Empty() bool {
	return len(c.Created)+len(c.Updated)+len(c.Collapsed)+len(c.Removed) == 0
}

// Reconcile merges the recipe demand into list. Demanded articles get
// max(0, demand + manual quantity); newly demanded ones are appended. Items no
// longer demanded collapse to their manual quantity when the user added some,
// or are removed when they came from recipes only. Calling it twice with the
// same demand leaves the list unchanged.
func Reconcile(list *List, demand Demand, now time.Time) Changes {
	var changes Changes

	byArticle := make(map[uuid.UUID]*Item, len(list.Items))
	for _, it := range list.Items {
		byArticle[it.ArticleID] = it
	}

	for _, articleID := range sortedArticles(demand) {
		r := demand[articleID]
		if it, ok := byArticle[articleID]; ok {
			q := math.Max(0, r+it.ManualQuantity)
			if q != it.Quantity {
				it.Quantity = q
				changes.Updated = append(changes.Updated, it)
			}
			continue
		}
		it := &Item{
			ID:        uuid.New(),
			ListID:    list.ID,
			ArticleID: articleID,
			Quantity:  math.Max(0, r),
		}
		list.Items = append(list.Items, it)
		changes.Created = append(changes.Created, it)
	}

	kept := list.Items[:0]
	for _, it := range list.Items {
		if _, demanded := demand[it.ArticleID]; demanded {
			kept = append(kept, it)
			continue
		}
		switch {
		case it.ManuallyAdded && it.ManualQuantity > 0:
			if it.Quantity != it.ManualQuantity {
				it.Quantity = it.ManualQuantity
				changes.Collapsed = append(changes.Collapsed, it)
			}
			kept = append(kept, it)
		case it.ManuallyAdded:
			// Manual items reduced to nothing stay as the user left them.
			kept = append(kept, it)
		default:
			changes.Removed = append(changes.Removed, it)
		}
	}
	for i := len(kept); i < len(list.Items); i++ {
		list.Items[i] = nil
	}
	list.Items = kept
	list.ModifiedAt = now

	return changes
}

// sortedArticles keeps item creation order stable across runs.
func sortedArticles(demand Demand) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
