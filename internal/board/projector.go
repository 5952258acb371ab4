package board

import (
	"cmp"
	"slices"
)

// PaintOrder returns items in draw order: every group first, in collection
// order, then the rest by ascending z-index. Ties keep collection order.
func PaintOrder(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.IsGroup() {
			out = append(out, it)
		}
	}
	groups := len(out)
	for _, it := range items {
		if !it.IsGroup() {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out[groups:], func(a, b Item) int {
		return cmp.Compare(a.ZIndex, b.ZIndex)
	})
	return out
}

// HitTest returns the topmost item whose bounds contain p.
func HitTest(items []Item, p Position) (Item, bool) {
	order := PaintOrder(items)
	for i := len(order) - 1; i >= 0; i-- {
		if order[i].Bounds().Contains(p) {
			return order[i], true
		}
	}
	return Item{}, false
}

// Extent returns the rect covering all items. ok is false for an empty slice.
func Extent(items []Item) (r Rect, ok bool) {
	for i, it := range items {
		if i == 0 {
			r = it.Bounds()
			continue
		}
		r = r.Union(it.Bounds())
	}
	return r, len(items) > 0
}
