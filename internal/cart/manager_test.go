package cart

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"LiveStore/internal/storage"
)

func newTestManager(t *testing.T) (*Manager, *storage.File[Cart]) {
	t.Helper()
	file := storage.NewFile[Cart](filepath.Join(t.TempDir(), "carts.json"))
	return NewManager(file, zap.NewNop()), file
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Empty(t, first.Products)

	second, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}

func TestCreateToleratesGaps(t *testing.T) {
	m, file := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, file.Save(ctx, []Cart{{ID: 41, Products: []LineItem{}}}))

	c, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.ID)
}

func TestCreateWithUnusableLastID(t *testing.T) {
	m, file := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, file.Save(ctx, []Cart{{ID: 7}, {ID: 0}}))

	c, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID)
}

func TestAddItemMergesQuantities(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	c, err := m.Create(ctx)
	require.NoError(t, err)

	_, err = m.AddItem(ctx, "1", "p1", 2)
	require.NoError(t, err)
	updated, err := m.AddItem(ctx, "1", "p1", 3)
	require.NoError(t, err)

	require.Len(t, updated.Products, 1, "duplicate product ids must merge, cart %d", c.ID)
	assert.Equal(t, LineItem{ID: "p1", Quantity: 5}, updated.Products[0])
}

func TestAddItemZeroQuantityPassesThrough(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx)
	require.NoError(t, err)

	updated, err := m.AddItem(ctx, "1", "p1", 0)
	require.NoError(t, err)
	assert.Equal(t, LineItem{ID: "p1", Quantity: 0}, updated.Products[0])

	// Adding zero onto an existing line item leaves it unchanged.
	_, err = m.AddItem(ctx, "1", "p1", 4)
	require.NoError(t, err)
	updated, err = m.AddItem(ctx, "1", "p1", 0)
	require.NoError(t, err)
	assert.Equal(t, LineItem{ID: "p1", Quantity: 4}, updated.Products[0])
}

func TestAddItemNegativeQuantityClamped(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx)
	require.NoError(t, err)

	updated, err := m.AddItem(ctx, "1", "p1", -3)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Products[0].Quantity)
}

func TestAddItemMissingCart(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.AddItem(context.Background(), "99", "p1", 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLineItemsMissingCart(t *testing.T) {
	m, _ := newTestManager(t)

	_, found, err := m.LineItems(context.Background(), "99")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLineItemsEmptyCart(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx)
	require.NoError(t, err)

	items, found, err := m.LineItems(ctx, "1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, items)
}

func TestLineItemsDedupesStoredDuplicates(t *testing.T) {
	m, file := newTestManager(t)
	ctx := context.Background()

	// Simulate a file written before dedupe existed.
	require.NoError(t, file.Save(ctx, []Cart{{
		ID: 1,
		Products: []LineItem{
			{ID: "p1", Quantity: 2},
			{ID: "p2", Quantity: 1},
			{ID: "p1", Quantity: 3},
			{ID: "", Quantity: 9},
		},
	}}))

	items, found, err := m.LineItems(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []LineItem{
		{ID: "p1", Quantity: 5},
		{ID: "p2", Quantity: 1},
	}, items)
}

func TestMergeItems(t *testing.T) {
	tests := []struct {
		name string
		in   []LineItem
		want []LineItem
	}{
		{"empty", nil, []LineItem{}},
		{
			"drops empty ids",
			[]LineItem{{ID: "", Quantity: 4}, {ID: "a", Quantity: 1}},
			[]LineItem{{ID: "a", Quantity: 1}},
		},
		{
			"accumulates in first-seen order",
			[]LineItem{{ID: "b", Quantity: 1}, {ID: "a", Quantity: 2}, {ID: "b", Quantity: 2}},
			[]LineItem{{ID: "b", Quantity: 3}, {ID: "a", Quantity: 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeItems(tt.in))
		})
	}
}
