package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store/memstore"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestApply(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name     string
		coupon   models.Coupon
		subtotal string
		discount string
		final    string
		err      error
	}{
		{
			name:     "flat",
			coupon:   models.Coupon{Code: "FLAT10", Type: models.CouponFlat, Value: dec("10"), ExpiresAt: future, Active: true},
			subtotal: "100", discount: "10.00", final: "90.00",
		},
		{
			name:     "percentage capped",
			coupon:   models.Coupon{Code: "PCT20", Type: models.CouponPercentage, Value: dec("20"), MaxDiscount: decPtr("15"), ExpiresAt: future, Active: true},
			subtotal: "100", discount: "15.00", final: "85.00",
		},
		{
			name:     "percentage under cap",
			coupon:   models.Coupon{Code: "PCT20", Type: models.CouponPercentage, Value: dec("20"), MaxDiscount: decPtr("50"), ExpiresAt: future, Active: true},
			subtotal: "100", discount: "20.00", final: "80.00",
		},
		{
			name:     "percentage rounds",
			coupon:   models.Coupon{Code: "THIRD", Type: models.CouponPercentage, Value: dec("33.333"), ExpiresAt: future, Active: true},
			subtotal: "100", discount: "33.33", final: "66.67",
		},
		{
			name:     "flat larger than subtotal",
			coupon:   models.Coupon{Code: "BIG", Type: models.CouponFlat, Value: dec("50"), ExpiresAt: future, Active: true},
			subtotal: "30", discount: "30.00", final: "0.00",
		},
		{
			name:     "below minimum order",
			coupon:   models.Coupon{Code: "MIN", Type: models.CouponFlat, Value: dec("10"), MinOrder: decPtr("150"), ExpiresAt: future, Active: true},
			subtotal: "100", err: apperr.ErrInvalidOrExpired,
		},
		{
			name:     "expired",
			coupon:   models.Coupon{Code: "OLD", Type: models.CouponFlat, Value: dec("10"), ExpiresAt: now.Add(-time.Second), Active: true},
			subtotal: "100", err: apperr.ErrInvalidOrExpired,
		},
		{
			name:     "inactive",
			coupon:   models.Coupon{Code: "OFF", Type: models.CouponFlat, Value: dec("10"), ExpiresAt: future},
			subtotal: "100", err: apperr.ErrInvalidOrExpired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(&tt.coupon, dec(tt.subtotal), now)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.discount, got.Discount.StringFixed(2))
			assert.Equal(t, tt.final, got.Final.StringFixed(2))

			again, err := Apply(&tt.coupon, dec(tt.subtotal), now)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	return NewService(st, zap.NewNop()), st
}

func flatInput(code string) Input {
	return Input{Code: code, Type: models.CouponFlat, Value: dec("10"), ExpiresAt: time.Now().Add(time.Hour)}
}

func TestServiceCRUD(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	c, err := s.Create(ctx, flatInput(" save10 "))
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", c.Code)
	assert.True(t, c.Active)

	_, err = s.Create(ctx, flatInput("SAVE10"))
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	bad := []Input{
		{Type: models.CouponFlat, Value: dec("1"), ExpiresAt: time.Now()},
		{Code: "X", Type: "BOGO", Value: dec("1"), ExpiresAt: time.Now()},
		{Code: "X", Type: models.CouponFlat, Value: dec("0"), ExpiresAt: time.Now()},
		{Code: "X", Type: models.CouponPercentage, Value: dec("101"), ExpiresAt: time.Now()},
		{Code: "X", Type: models.CouponFlat, Value: dec("1")},
		{Code: "X", Type: models.CouponFlat, Value: dec("1"), ExpiresAt: time.Now(), ProductIDs: []string{"nope"}},
	}
	for _, in := range bad {
		_, err := s.Create(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "%+v", in)
	}

	inactive := false
	in := flatInput("save10")
	in.Active = &inactive
	updated, err := s.Update(ctx, c.ID, in)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	_, err = s.Apply(ctx, "save10", dec("100"))
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpired)

	got, err := s.Get(ctx, "save10")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	require.NoError(t, s.Delete(ctx, c.ID))
	assert.ErrorIs(t, s.Delete(ctx, c.ID), apperr.ErrNotFound)
	_, err = s.Get(ctx, "SAVE10")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFilterRejectsUnknownCodes(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, flatInput("KNOWN"))
	require.NoError(t, err)
	require.NoError(t, s.LoadFilter(ctx))

	// written behind the service's back, so only the filter can reject it
	require.NoError(t, st.Coupons().Create(ctx, &models.Coupon{
		Code: "SNEAKY", Type: models.CouponFlat, Value: dec("5"), ExpiresAt: time.Now().Add(time.Hour), Active: true,
	}))
	_, err = s.Apply(ctx, "SNEAKY", dec("100"))
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpired)

	got, err := s.Apply(ctx, "known", dec("100"))
	require.NoError(t, err)
	assert.Equal(t, "90.00", got.Final.StringFixed(2))

	_, err = s.Create(ctx, flatInput("LATER"))
	require.NoError(t, err)
	_, err = s.Apply(ctx, "LATER", dec("100"))
	assert.NoError(t, err)
}

func TestApplyToCart(t *testing.T) {
	s, st := newService(t)
	ctx := context.Background()
	caller := models.Caller{UserID: uuid.New()}

	shirt := &models.Product{Name: "shirt", Slug: "shirt", Price: dec("40"), Stock: 10, Status: models.ProductActive}
	socks := &models.Product{Name: "socks", Slug: "socks", Price: dec("5"), Stock: 10, Status: models.ProductActive}
	require.NoError(t, st.Products().Create(ctx, shirt))
	require.NoError(t, st.Products().Create(ctx, socks))

	in := Input{Code: "SHIRTS", Type: models.CouponPercentage, Value: dec("50"), ExpiresAt: time.Now().Add(time.Hour), ProductIDs: []string{shirt.ID.String()}}
	_, err := s.Create(ctx, in)
	require.NoError(t, err)

	_, err = s.ApplyToCart(ctx, caller, "SHIRTS")
	require.ErrorIs(t, err, apperr.ErrInvalidOrExpired, "no cart")

	cart := &models.Cart{UserID: caller.UserID}
	require.NoError(t, st.Carts().Create(ctx, cart))
	require.NoError(t, st.Carts().SaveItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: socks.ID, Quantity: 2, Selected: true}))

	_, err = s.ApplyToCart(ctx, caller, "SHIRTS")
	require.ErrorIs(t, err, apperr.ErrInvalidOrExpired, "no covered items")

	require.NoError(t, st.Carts().SaveItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: shirt.ID, Quantity: 2, Selected: true}))
	got, err := s.ApplyToCart(ctx, caller, "shirts")
	require.NoError(t, err)
	assert.Equal(t, "80.00", got.Subtotal.StringFixed(2))
	assert.Equal(t, "40.00", got.Discount.StringFixed(2))
	assert.Equal(t, "40.00", got.Final.StringFixed(2))
}

func TestAppliesTo(t *testing.T) {
	id := uuid.NewString()
	all := models.Coupon{}
	some := models.Coupon{ProductIDs: pq.StringArray{id}}
	assert.True(t, all.AppliesTo(uuid.NewString()))
	assert.True(t, some.AppliesTo(id))
	assert.False(t, some.AppliesTo(uuid.NewString()))
}
