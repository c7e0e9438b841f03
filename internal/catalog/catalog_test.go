package catalog

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/store/memstore"
)

func TestSlugify(t *testing.T) {
	for in, want := range map[string]string{
		"Green Tea":           "green-tea",
		"  Earl -- Grey!! ":   "earl-grey",
		"100% Cotton T-Shirt": "100-cotton-t-shirt",
		"!!!":                 "",
	} {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCreateRecordsInitialStock(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	s := NewService(st, zap.NewNop())

	p, err := s.Create(ctx, CreateInput{Name: "Green Tea", Price: decimal.RequireFromString("4.999"), Stock: 12})
	require.NoError(t, err)
	assert.Equal(t, "green-tea", p.Slug)
	assert.Equal(t, 12, p.Stock)
	assert.Equal(t, models.ProductActive, p.Status)
	assert.Equal(t, "5", p.Price.String())
	assert.Equal(t, models.DefaultLowStockThreshold, p.LowStockThreshold)

	rows, _, err := st.Inventory().History(ctx, p.ID, store.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ReasonRestock, rows[0].Reason)
	assert.Equal(t, 12, rows[0].StockAfter)

	empty, err := s.Create(ctx, CreateInput{Name: "Black Tea", Price: decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.Equal(t, models.ProductOutOfStock, empty.Status)
	rows, _, err = st.Inventory().History(ctx, empty.ID, store.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = s.Create(ctx, CreateInput{Name: "green tea", Price: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))
}

func TestCreateValidation(t *testing.T) {
	s := NewService(memstore.New(), zap.NewNop())
	negative := -1
	for name, in := range map[string]CreateInput{
		"no name":        {Price: decimal.NewFromInt(1)},
		"negative price": {Name: "x", Price: decimal.NewFromInt(-1)},
		"negative stock": {Name: "x", Price: decimal.NewFromInt(1), Stock: -1},
		"bad threshold":  {Name: "x", Price: decimal.NewFromInt(1), LowStockThreshold: &negative},
		"empty slug":     {Name: "!!", Price: decimal.NewFromInt(1)},
	} {
		_, err := s.Create(context.Background(), in)
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput), name)
	}
}

func TestUpdateKeepsStock(t *testing.T) {
	ctx := context.Background()
	s := NewService(memstore.New(), zap.NewNop())
	p, err := s.Create(ctx, CreateInput{Name: "Mug", Price: decimal.NewFromInt(8), Stock: 3})
	require.NoError(t, err)

	name := "Big Mug"
	price := decimal.RequireFromString("9.50")
	updated, err := s.Update(ctx, p.ID, UpdateInput{Name: &name, Price: &price, Images: []string{"a.png"}})
	require.NoError(t, err)
	assert.Equal(t, "Big Mug", updated.Name)
	assert.Equal(t, "mug", updated.Slug)
	assert.True(t, price.Equal(updated.Price))
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, models.ProductActive, updated.Status)

	blank := " "
	_, err = s.Update(ctx, p.ID, UpdateInput{Name: &blank})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = s.Update(ctx, uuid.New(), UpdateInput{})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestListGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewService(memstore.New(), zap.NewNop())
	tea, err := s.Create(ctx, CreateInput{Name: "Tea", Category: "drinks", Price: decimal.NewFromInt(5), Stock: 1})
	require.NoError(t, err)
	_, err = s.Create(ctx, CreateInput{Name: "Cup", Category: "kitchen", Price: decimal.NewFromInt(15)})
	require.NoError(t, err)

	list, total, err := s.List(ctx, store.ProductFilter{Category: "drinks"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, tea.ID, list[0].ID)

	minPrice := 10.0
	list, _, err = s.List(ctx, store.ProductFilter{MinPrice: &minPrice})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Cup", list[0].Name)

	list, _, err = s.List(ctx, store.ProductFilter{Status: models.ProductOutOfStock})
	require.NoError(t, err)
	require.Len(t, list, 1)

	maxPrice := 1.0
	_, _, err = s.List(ctx, store.ProductFilter{MinPrice: &minPrice, MaxPrice: &maxPrice})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	_, _, err = s.List(ctx, store.ProductFilter{Status: "GONE"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	got, err := s.Get(ctx, tea.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tea", got.Name)

	require.NoError(t, s.Delete(ctx, tea.ID))
	_, err = s.Get(ctx, tea.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, tea.ID), apperr.ErrNotFound))
}

func TestCreateKeepsZeroThreshold(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	s := NewService(st, zap.NewNop())

	zero := 0
	p, err := s.Create(ctx, CreateInput{Name: "Kettle", Price: decimal.NewFromInt(20), Stock: 3, LowStockThreshold: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, p.LowStockThreshold)

	low, err := st.Products().LowStock(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	s := NewService(st, zap.NewNop())

	tea, err := s.Create(ctx, CreateInput{Name: "Tea", Category: "drinks", Price: decimal.NewFromInt(5)})
	require.NoError(t, err)
	coffee, err := s.Create(ctx, CreateInput{Name: "Coffee", Category: "drinks", Price: decimal.NewFromInt(7)})
	require.NoError(t, err)
	cup, err := s.Create(ctx, CreateInput{Name: "Cup", Category: "kitchen", Price: decimal.NewFromInt(15)})
	require.NoError(t, err)

	fan := models.Caller{UserID: uuid.New(), Role: models.RoleUser}
	require.NoError(t, st.Reviews().Create(ctx, &models.Review{UserID: fan.UserID, ProductID: tea.ID, Rating: 5}))
	require.NoError(t, st.Reviews().Create(ctx, &models.Review{UserID: fan.UserID, ProductID: cup.ID, Rating: 2}))

	t.Run("liked categories", func(t *testing.T) {
		got, err := s.Recommend(ctx, fan)
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, p := range got {
			assert.Equal(t, "drinks", p.Category)
		}
		assert.Equal(t, coffee.ID, got[0].ID)
	})

	t.Run("best rated fallback", func(t *testing.T) {
		got, err := s.Recommend(ctx, models.Caller{UserID: uuid.New(), Role: models.RoleUser})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, tea.ID, got[0].ID)
		assert.Equal(t, cup.ID, got[1].ID)
		assert.Equal(t, coffee.ID, got[2].ID)
	})
}
