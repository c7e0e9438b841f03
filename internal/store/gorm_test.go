package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/storefront/internal/models"
)

// sqlRecorder captures the statements a dry-run session would have sent.
type sqlRecorder struct {
	mu   sync.Mutex
	stmt []string
}

func (r *sqlRecorder) LogMode(logger.LogLevel) logger.Interface { return r }
func (r *sqlRecorder) Info(context.Context, string, ...interface{}) {}
func (r *sqlRecorder) Warn(context.Context, string, ...interface{}) {}
func (r *sqlRecorder) Error(context.Context, string, ...interface{}) {}

func (r *sqlRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.mu.Lock()
	r.stmt = append(r.stmt, sql)
	r.mu.Unlock()
}

func (r *sqlRecorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.stmt
	r.stmt = nil
	return out
}

func dryRun(t *testing.T) (*GormStore, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=shop dbname=shop sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               rec,
	})
	require.NoError(t, err)
	return NewGorm(db), rec
}

// insertParts splits an INSERT into its column list and its VALUES tail.
func insertParts(t *testing.T, sql string) (string, string) {
	t.Helper()
	require.True(t, strings.HasPrefix(sql, "INSERT INTO"), sql)
	cols, values, found := strings.Cut(sql, " VALUES ")
	require.True(t, found, sql)
	return cols, values
}

func TestCreateKeepsExplicitZeroValues(t *testing.T) {
	ctx := context.Background()
	st, rec := dryRun(t)

	t.Run("inactive coupon", func(t *testing.T) {
		err := st.Coupons().Create(ctx, &models.Coupon{
			Code:      "OFF",
			Type:      models.CouponFlat,
			Value:     decimal.NewFromInt(10),
			ExpiresAt: time.Now().Add(time.Hour),
			Active:    false,
		})
		require.NoError(t, err)

		stmts := rec.take()
		require.Len(t, stmts, 1)
		cols, values := insertParts(t, stmts[0])
		assert.Contains(t, cols, `"active"`)
		assert.Contains(t, values, "false")
		assert.NotContains(t, values, "true")
	})

	t.Run("zero low stock threshold", func(t *testing.T) {
		err := st.Products().Create(ctx, &models.Product{
			Name:              "Mug",
			Price:             decimal.NewFromInt(5),
			LowStockThreshold: 0,
			Status:            models.ProductOutOfStock,
		})
		require.NoError(t, err)

		stmts := rec.take()
		require.Len(t, stmts, 1)
		cols, _ := insertParts(t, stmts[0])
		assert.Contains(t, cols, `"low_stock_threshold"`)
	})

	t.Run("deselected cart item", func(t *testing.T) {
		err := st.Carts().SaveItem(ctx, &models.CartItem{
			CartID:    uuid.New(),
			ProductID: uuid.New(),
			Quantity:  1,
			Selected:  false,
		})
		require.NoError(t, err)

		stmts := rec.take()
		require.NotEmpty(t, stmts)
		cols, values := insertParts(t, stmts[len(stmts)-1])
		assert.Contains(t, cols, `"selected"`)
		assert.Contains(t, values, "false")
	})
}

func TestLockByIDSelectsForUpdate(t *testing.T) {
	ctx := context.Background()
	st, rec := dryRun(t)

	_, err := st.Products().LockByID(ctx, uuid.New())
	require.NoError(t, err)
	stmts := rec.take()
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], `FROM "products"`)
	assert.True(t, strings.HasSuffix(stmts[0], "FOR UPDATE"), stmts[0])

	_, err = st.Orders().LockByID(ctx, uuid.New())
	require.NoError(t, err)
	stmts = rec.take()
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `FROM "orders"`)
	assert.Contains(t, stmts[0], "FOR UPDATE")
	assert.Contains(t, stmts[1], `FROM "order_items"`)
	assert.Contains(t, stmts[1], "ORDER BY position ASC")
}

func TestOrderSaveUpdatesRefundedQuantityOnly(t *testing.T) {
	ctx := context.Background()
	st, rec := dryRun(t)

	order := &models.Order{
		UserID:      uuid.New(),
		Status:      models.OrderDelivered,
		TotalAmount: decimal.NewFromInt(30),
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Quantity: 3, UnitPrice: decimal.NewFromInt(10), RefundedQuantity: 2},
		},
	}
	order.ID = uuid.New()
	order.Items[0].ID = uuid.New()
	order.Items[0].OrderID = order.ID

	require.NoError(t, st.Orders().Save(ctx, order))

	stmts := rec.take()
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], `UPDATE "orders"`), stmts[0])
	for _, s := range stmts {
		assert.NotContains(t, s, `INSERT INTO "order_items"`)
	}
	assert.True(t, strings.HasPrefix(stmts[1], `UPDATE "order_items"`), stmts[1])
	assert.Contains(t, stmts[1], `"refunded_quantity"=2`)
	assert.Contains(t, stmts[1], order.Items[0].ID.String())
}

func TestLowStockThresholdForms(t *testing.T) {
	ctx := context.Background()
	st, rec := dryRun(t)

	_, err := st.Products().LowStock(ctx, nil)
	require.NoError(t, err)
	stmts := rec.take()
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "stock <= low_stock_threshold")

	three := 3
	_, err = st.Products().LowStock(ctx, &three)
	require.NoError(t, err)
	stmts = rec.take()
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "stock <= 3")
	assert.NotContains(t, stmts[0], "low_stock_threshold")
}
