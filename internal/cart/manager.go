package cart

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"LiveStore/internal/storage"
)

// Manager owns cart identity and line-item aggregation. Like the catalog
// Manager, every mutation is one serialized read-modify-write cycle against
// the backing file.
type Manager struct {
	file *storage.File[Cart]
	log  *zap.Logger
}

func NewManager(file *storage.File[Cart], log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{file: file, log: log}
}

// Create appends an empty cart under the next integer id.
func (m *Manager) Create(ctx context.Context) (Cart, error) {
	var created Cart
	_, err := m.file.Update(ctx, func(carts []Cart) ([]Cart, error) {
		created = Cart{ID: nextID(carts), Products: []LineItem{}}
		return append(carts, created), nil
	})
	if err != nil {
		return Cart{}, err
	}

	m.log.Info("cart created", zap.Int64("id", created.ID))
	return created, nil
}

// LineItems returns the merged, deduplicated line items of one cart. An empty
// cart yields an empty slice with found=true; only a missing cart reports
// found=false.
func (m *Manager) LineItems(ctx context.Context, cartID string) ([]LineItem, bool, error) {
	carts, err := m.file.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, c := range carts {
		if sameID(c.ID, cartID) {
			return mergeItems(c.Products), true, nil
		}
	}
	return nil, false, nil
}

// AddItem merges quantity onto the cart's line item for productID, appending
// a new line item when none exists yet. The stored line-item set is
// deduplicated as part of the same write. Zero quantities pass through and
// simply add nothing; negatives would break the non-negative quantity
// invariant and are clamped to zero.
func (m *Manager) AddItem(ctx context.Context, cartID, productID string, quantity int) (Cart, error) {
	if quantity < 0 {
		quantity = 0
	}
	productID = strings.TrimSpace(productID)

	var updated Cart
	_, err := m.file.Update(ctx, func(carts []Cart) ([]Cart, error) {
		idx := -1
		for i, c := range carts {
			if sameID(c.ID, cartID) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("cart %q: %w", cartID, ErrNotFound)
		}

		items := mergeItems(append(carts[idx].Products, LineItem{ID: productID, Quantity: quantity}))
		carts[idx].Products = items
		updated = carts[idx]
		return carts, nil
	})
	if err != nil {
		return Cart{}, err
	}

	m.log.Info("line item added",
		zap.String("cart_id", cartID),
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return updated, nil
}
