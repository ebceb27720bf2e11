package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"LiveStore/internal/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	file := storage.NewFile[Product](filepath.Join(t.TempDir(), "products.json"))
	return NewManager(file, zap.NewNop())
}

func productFields() Fields {
	return Fields{
		"title":       gofakeit.ProductName(),
		"description": gofakeit.Sentence(6),
		"code":        gofakeit.LetterN(8),
		"price":       float64(gofakeit.Price(1, 500)),
		"stock":       float64(gofakeit.Number(0, 100)),
		"category":    gofakeit.ProductCategory(),
	}
}

func TestCreateThenGet(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, Fields{
		"Title":       "  Keyboard  ",
		"DESCRIPTION": "mechanical",
		"code":        "KB-01",
		"price":       "49.90",
		"stock":       float64(5),
		"category":    "peripherals",
		"status":      "Active",
		"thumbnails":  "kb.jpg",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, ok, err := m.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "Keyboard", got.Title)
	assert.Equal(t, "mechanical", got.Description)
	assert.Equal(t, 49.90, got.Price)
	assert.Equal(t, 5, got.Stock)
	assert.True(t, got.Status)
	assert.Equal(t, []string{"kb.jpg"}, got.Thumbnails)
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	seen := map[string]struct{}{}
	for i := 0; i < 5; i++ {
		p, err := m.Create(ctx, productFields())
		require.NoError(t, err)
		_, dup := seen[p.ID]
		require.False(t, dup, "id %s reused", p.ID)
		seen[p.ID] = struct{}{}
	}
}

func TestCreateMissingFields(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create(context.Background(), Fields{"title": "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Missing, "price")
	assert.Contains(t, verr.Missing, "category")

	products, lerr := m.List(context.Background())
	require.NoError(t, lerr)
	assert.Empty(t, products, "rejected create must not persist")
}

func TestGetMissingIsNotAnError(t *testing.T) {
	m := newTestManager(t)

	_, ok, err := m.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateMergesAndKeepsID(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, productFields())
	require.NoError(t, err)

	updated, err := m.Update(ctx, created.ID, Fields{
		"id":     "forged",
		"Price":  "10.50",
		"status": "inactive",
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID, "id is immutable")
	assert.Equal(t, 10.50, updated.Price)
	assert.False(t, updated.Status)
	assert.Equal(t, created.Title, updated.Title, "untouched fields survive")
}

func TestUpdateMissingProduct(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Update(context.Background(), "nope", Fields{"price": 1.0})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, productFields())
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, created.ID))

	_, ok, err := m.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteMissingLeavesStoreAlone(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, productFields())
	require.NoError(t, err)

	require.ErrorIs(t, m.Delete(ctx, "nope"), ErrNotFound)

	products, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, created.ID, products[0].ID)
}

func TestListKeepsInsertionOrder(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		p, err := m.Create(ctx, productFields())
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	products, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, len(ids))
	for i, p := range products {
		assert.Equal(t, ids[i], p.ID)
	}
}

func TestConcurrentCreatesBothPersist(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := m.Create(ctx, productFields())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	products, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, products, writers, "no create may be lost to a concurrent write")
}
