package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

func TestUpdateStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "shirt", "10.00", 2)

	_, err := f.c.UpdateStock(ctx, StockUpdate{ProductID: a.ID, Delta: -3, Reason: models.ReasonDamage})
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 2, f.reload(t, a.ID).Stock)

	p, err := f.c.UpdateStock(ctx, StockUpdate{ProductID: a.ID, Delta: -2, Reason: models.ReasonDamage, Notes: "water damage"})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, models.ProductOutOfStock, p.Status)

	p, err = f.c.UpdateStock(ctx, StockUpdate{ProductID: a.ID, Delta: 10, Reason: models.ReasonRestock, Reference: "PO-7"})
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, models.ProductActive, p.Status)
	assertAvailability(t, f.reload(t, a.ID))

	rows := f.history(t, a.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, models.ReasonRestock, rows[0].Reason)
	assert.Equal(t, "PO-7", rows[0].Reference)
	assert.Equal(t, 10, rows[0].StockAfter)
	assert.Equal(t, "water damage", rows[1].Notes)
}

func TestUpdateStockValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "shirt", "10.00", 2)

	tests := []struct {
		name string
		u    StockUpdate
		want error
	}{
		{"zero delta", StockUpdate{ProductID: a.ID}, apperr.ErrInvalidInput},
		{"no product", StockUpdate{Delta: 1}, apperr.ErrInvalidInput},
		{"bad reason", StockUpdate{ProductID: a.ID, Delta: 1, Reason: "GIFT"}, apperr.ErrInvalidInput},
		{"unknown product", StockUpdate{ProductID: uuid.New(), Delta: 1}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.c.UpdateStock(ctx, tt.u)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	p, err := f.c.UpdateStock(ctx, StockUpdate{ProductID: a.ID, Delta: 1})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonAdjustment, f.history(t, p.ID)[0].Reason)
}

func TestBulkUpdateStockIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "shirt", "10.00", 2)
	b := f.product(t, "socks", "2.50", 1)
	missing := uuid.New()

	results, err := f.c.BulkUpdateStock(ctx, []StockUpdate{
		{ProductID: a.ID, Delta: 5, Reason: models.ReasonRestock},
		{ProductID: b.ID, Delta: -10, Reason: models.ReasonDamage},
		{ProductID: missing, Delta: 1},
		{ProductID: b.ID, Delta: 0},
		{ProductID: b.ID, Delta: -1, Reason: models.ReasonDamage},
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.True(t, results[0].Success)
	assert.Equal(t, 7, results[0].NewStock)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "insufficient stock")
	assert.False(t, results[2].Success)
	assert.Equal(t, missing, results[2].ProductID)
	assert.False(t, results[3].Success)
	assert.True(t, results[4].Success)
	assert.Equal(t, 0, results[4].NewStock)

	gotA, gotB := f.reload(t, a.ID), f.reload(t, b.ID)
	assert.Equal(t, 7, gotA.Stock)
	assert.Equal(t, 0, gotB.Stock)
	assertAvailability(t, gotA)
	assertAvailability(t, gotB)
	assert.Len(t, f.history(t, b.ID), 1)

	_, err = f.c.BulkUpdateStock(ctx, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestInventoryViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "shirt", "10.00", 20)
	b := f.product(t, "socks", "2.50", 4)
	c := f.product(t, "hat", "7.00", 8)

	for i := 0; i < 12; i++ {
		_, err := f.c.UpdateStock(ctx, StockUpdate{ProductID: a.ID, Delta: -1, Reason: models.ReasonAdjustment})
		require.NoError(t, err)
	}
	_, err := f.c.UpdateStock(ctx, StockUpdate{ProductID: a.ID, Delta: 3, Reason: models.ReasonRestock})
	require.NoError(t, err)

	view, err := f.c.Inventory(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, view.Stock)
	assert.False(t, view.LowStock)
	assert.Len(t, view.Recent, 10)
	assert.Equal(t, models.ReasonRestock, view.Recent[0].Reason)

	rows, total, err := f.c.History(ctx, a.ID, store.HistoryFilter{Reason: models.ReasonRestock})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, rows, 1)

	_, _, err = f.c.History(ctx, uuid.New(), store.HistoryFilter{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	low, err := f.c.LowStock(ctx, nil)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, b.ID, low[0].ID)

	threshold := 8
	low, err = f.c.LowStock(ctx, &threshold)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, b.ID, low[0].ID)
	assert.Equal(t, c.ID, low[1].ID)

	_, err = f.c.SetLowStockThreshold(ctx, c.ID, -1)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	p, err := f.c.SetLowStockThreshold(ctx, c.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, p.LowStockThreshold)
	assert.Equal(t, 8, p.Stock)

	low, err = f.c.LowStock(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, low, 2)
}
