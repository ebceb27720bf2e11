package cart

import (
	"errors"
	"strconv"
	"strings"
)

// LineItem references a product by id together with an accumulated quantity.
// The reference is weak: deleting the product does not remove the line item.
type LineItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// Cart holds a monotonically increasing integer id and its line items.
// Within one cart, line-item ids are unique; repeated additions of the same
// product merge quantities instead of appending duplicates.
type Cart struct {
	ID       int64      `json:"id"`
	Products []LineItem `json:"products"`
}

// ErrNotFound reports a cart id absent from the collection.
var ErrNotFound = errors.New("cart not found")

// nextID picks the id for a new cart: last id + 1, falling back to len+1 when
// the last stored id is unusable, and 1 for an empty collection.
func nextID(carts []Cart) int64 {
	if len(carts) == 0 {
		return 1
	}
	last := carts[len(carts)-1]
	if last.ID > 0 {
		return last.ID + 1
	}
	return int64(len(carts)) + 1
}

// sameID compares a cart id against a route parameter as strings, tolerating
// numeric/string mismatches in stored data.
func sameID(id int64, param string) bool {
	return strconv.FormatInt(id, 10) == strings.TrimSpace(param)
}

// mergeItems deduplicates line items by product id: quantities of duplicate
// ids accumulate, entries with an empty id are dropped, and first-seen order
// is kept.
func mergeItems(items []LineItem) []LineItem {
	quantities := make(map[string]int, len(items))
	order := make([]string, 0, len(items))

	for _, it := range items {
		key := strings.TrimSpace(it.ID)
		if key == "" {
			continue
		}
		if _, seen := quantities[key]; !seen {
			order = append(order, key)
		}
		quantities[key] += it.Quantity
	}

	out := make([]LineItem, 0, len(order))
	for _, key := range order {
		out = append(out, LineItem{ID: key, Quantity: quantities[key]})
	}
	return out
}
