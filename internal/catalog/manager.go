package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"LiveStore/internal/storage"
)

// Manager owns product identity and all catalog mutations. Every operation is
// a serialized read-modify-write against the backing file, so concurrent
// creates, updates and deletes never lose each other's effect.
type Manager struct {
	file *storage.File[Product]
	log  *zap.Logger
}

func NewManager(file *storage.File[Product], log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{file: file, log: log}
}

// List returns all products in insertion order.
func (m *Manager) List(ctx context.Context) ([]Product, error) {
	return m.file.Load(ctx)
}

// Get returns the product for id. A missing id is not an error.
func (m *Manager) Get(ctx context.Context, id string) (Product, bool, error) {
	products, err := m.file.Load(ctx)
	if err != nil {
		return Product{}, false, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Product{}, false, nil
}

// Create validates and normalizes fields, assigns a fresh id and appends the
// product to the catalog.
func (m *Manager) Create(ctx context.Context, fields Fields) (Product, error) {
	folded := fields.fold()
	if missing := folded.missingRequired(); len(missing) > 0 {
		return Product{}, &ValidationError{Missing: missing}
	}

	product, err := normalize(folded)
	if err != nil {
		return Product{}, err
	}
	product.ID = uuid.NewString()

	_, err = m.file.Update(ctx, func(products []Product) ([]Product, error) {
		return append(products, product), nil
	})
	if err != nil {
		return Product{}, err
	}

	m.log.Info("product created", zap.String("id", product.ID), zap.String("title", product.Title))
	return product, nil
}

// Update merges the provided fields over the stored product. The id is
// immutable; an id key in fields is ignored. Typed fields are re-coerced the
// same way Create coerces them.
func (m *Manager) Update(ctx context.Context, id string, fields Fields) (Product, error) {
	folded := fields.fold()

	var updated Product
	_, err := m.file.Update(ctx, func(products []Product) ([]Product, error) {
		idx := indexOf(products, id)
		if idx < 0 {
			return nil, fmt.Errorf("update %q: %w", id, ErrNotFound)
		}

		next, err := applyFields(products[idx], folded)
		if err != nil {
			return nil, err
		}
		products[idx] = next
		updated = next
		return products, nil
	})
	if err != nil {
		return Product{}, err
	}

	m.log.Info("product updated", zap.String("id", id))
	return updated, nil
}

// Delete removes the product for id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	_, err := m.file.Update(ctx, func(products []Product) ([]Product, error) {
		idx := indexOf(products, id)
		if idx < 0 {
			return nil, fmt.Errorf("delete %q: %w", id, ErrNotFound)
		}
		return append(products[:idx], products[idx+1:]...), nil
	})
	if err != nil {
		return err
	}

	m.log.Info("product deleted", zap.String("id", id))
	return nil
}

func indexOf(products []Product, id string) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// applyFields merges one folded field set over an existing product.
func applyFields(p Product, f Fields) (Product, error) {
	if v, ok := f["title"]; ok {
		p.Title = asString(v)
	}
	if v, ok := f["description"]; ok {
		p.Description = asString(v)
	}
	if v, ok := f["code"]; ok {
		p.Code = asString(v)
	}
	if v, ok := f["category"]; ok {
		p.Category = asString(v)
	}
	if v, ok := f["price"]; ok {
		n, err := coerceNumber(v)
		if err != nil {
			return Product{}, &ValidationError{Reason: fmt.Sprintf("price: %v", err)}
		}
		p.Price = n
	}
	if v, ok := f["stock"]; ok {
		n, err := coerceNumber(v)
		if err != nil {
			return Product{}, &ValidationError{Reason: fmt.Sprintf("stock: %v", err)}
		}
		p.Stock = int(n)
	}
	if v, ok := f["status"]; ok {
		p.Status = coerceStatus(v)
	}
	if v, ok := f["thumbnails"]; ok {
		p.Thumbnails = coerceThumbnails(v)
	}
	return p, nil
}
