package reviews

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store/memstore"
)

func setup(t *testing.T) (*Service, *memstore.Store, *models.Product) {
	t.Helper()
	st := memstore.New()
	p := &models.Product{Name: "shirt", Slug: "shirt", Price: decimal.NewFromInt(10), Stock: 1, Status: models.ProductActive}
	require.NoError(t, st.Products().Create(context.Background(), p))
	return NewService(st, zap.NewNop()), st, p
}

func TestCreateAndVerifiedPurchase(t *testing.T) {
	s, st, p := setup(t)
	ctx := context.Background()
	buyer := models.Caller{UserID: uuid.New()}

	_, err := s.Create(ctx, buyer, Input{ProductID: p.ID, Rating: 6})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = s.Create(ctx, buyer, Input{ProductID: uuid.New(), Rating: 4})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	r, err := s.Create(ctx, buyer, Input{ProductID: p.ID, Rating: 4, Body: " nice "})
	require.NoError(t, err)
	assert.False(t, r.VerifiedPurchase)
	assert.Equal(t, "nice", r.Body)

	order := &models.Order{
		UserID: buyer.UserID,
		Status: models.OrderDelivered,
		Items:  []models.OrderItem{{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price}},
	}
	require.NoError(t, st.Orders().Create(ctx, order))

	r, err = s.Create(ctx, buyer, Input{ProductID: p.ID, Rating: 5})
	require.NoError(t, err)
	assert.True(t, r.VerifiedPurchase)

	stats, err := s.Stats(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.InDelta(t, 4.5, stats.Average, 0.001)
}

func TestUpdateAndDeletePermissions(t *testing.T) {
	s, _, p := setup(t)
	ctx := context.Background()
	author := models.Caller{UserID: uuid.New()}
	stranger := models.Caller{UserID: uuid.New()}
	admin := models.Caller{UserID: uuid.New(), Role: models.RoleAdmin}

	r, err := s.Create(ctx, author, Input{ProductID: p.ID, Rating: 2})
	require.NoError(t, err)

	_, err = s.Update(ctx, stranger, r.ID, Input{Rating: 5})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = s.Update(ctx, admin, r.ID, Input{Rating: 5})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := s.Update(ctx, author, r.ID, Input{Rating: 3, Body: "better"})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Rating)

	require.ErrorIs(t, s.Delete(ctx, stranger, r.ID), apperr.ErrForbidden)
	require.NoError(t, s.Delete(ctx, admin, r.ID))
	require.ErrorIs(t, s.Delete(ctx, author, r.ID), apperr.ErrNotFound)

	mine, err := s.ForUser(ctx, author)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestFlagStale(t *testing.T) {
	s, _, p := setup(t)
	ctx := context.Background()
	user := models.Caller{UserID: uuid.New()}

	for _, rating := range []int{1, 2, 3, 5} {
		_, err := s.Create(ctx, user, Input{ProductID: p.ID, Rating: rating})
		require.NoError(t, err)
	}

	n, err := s.FlagStale(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n, "reviews are too fresh")

	later := time.Now().Add(StaleAfter + time.Minute)
	n, err = s.FlagStale(ctx, later)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.FlagStale(ctx, later)
	require.NoError(t, err)
	assert.Zero(t, n)

	flagged, err := s.Flagged(ctx)
	require.NoError(t, err)
	require.Len(t, flagged, 2)
	for _, r := range flagged {
		assert.Less(t, r.Rating, FlagBelow)
	}

	all, err := s.ForProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
