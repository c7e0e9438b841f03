package memstore

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

func newProduct(t *testing.T, s *Store, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:   "Tea",
		Slug:   "tea-" + t.Name(),
		Price:  decimal.NewFromInt(10),
		Stock:  stock,
		Status: models.DeriveAvailability(stock),
	}
	require.NoError(t, s.Products().Create(context.Background(), p))
	return p
}

func TestAtomicRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProduct(t, s, 5)

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(tx store.Store) error {
		locked, err := tx.Products().LockByID(ctx, p.ID)
		require.NoError(t, err)
		locked.Stock = 1
		require.NoError(t, tx.Products().Save(ctx, locked))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Products().ByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}

func TestNestedAtomicIsSavepoint(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := newProduct(t, s, 5)
	b := newProduct(t, s, 5)

	err := s.Atomic(ctx, func(tx store.Store) error {
		require.NoError(t, tx.Atomic(ctx, func(inner store.Store) error {
			p, _ := inner.Products().LockByID(ctx, a.ID)
			p.Stock = 2
			return inner.Products().Save(ctx, p)
		}))
		err := tx.Atomic(ctx, func(inner store.Store) error {
			p, _ := inner.Products().LockByID(ctx, b.ID)
			p.Stock = 0
			if err := inner.Products().Save(ctx, p); err != nil {
				return err
			}
			return errors.New("abort b")
		})
		require.Error(t, err)
		return nil
	})
	require.NoError(t, err)

	gotA, _ := s.Products().ByID(ctx, a.ID)
	gotB, _ := s.Products().ByID(ctx, b.ID)
	assert.Equal(t, 2, gotA.Stock)
	assert.Equal(t, 5, gotB.Stock)
}

func TestUniqueKeys(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Accounts().Create(ctx, &models.Account{Phone: "+998901234567"}))
	err := s.Accounts().Create(ctx, &models.Account{Phone: "+998901234567"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	require.NoError(t, s.Coupons().Create(ctx, &models.Coupon{Code: "SAVE10"}))
	err = s.Coupons().Create(ctx, &models.Coupon{Code: "SAVE10"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.Accounts().ByPhone(ctx, "+10000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProduct(t, s, 3)

	order := &models.Order{
		UserID: p.ID,
		Items:  []models.OrderItem{{ProductID: p.ID, Quantity: 2, UnitPrice: p.Price}},
	}
	require.NoError(t, s.Orders().Create(ctx, order))

	got, err := s.Orders().ByID(ctx, order.ID)
	require.NoError(t, err)
	got.Items[0].RefundedQuantity = 2

	again, err := s.Orders().ByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Items[0].RefundedQuantity)

	require.NoError(t, s.Orders().Save(ctx, got))
	again, err = s.Orders().ByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].RefundedQuantity)
}

func TestNegativeStockRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProduct(t, s, 1)
	p.Stock = -1
	assert.Error(t, s.Products().Save(ctx, p))
}
