package orders

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

const recentHistory = 10

// StockUpdate is a manual stock adjustment.
type StockUpdate struct {
	ProductID uuid.UUID          `json:"product_id"`
	Delta     int                `json:"delta"`
	Reason    models.StockReason `json:"reason"`
	Reference string             `json:"reference"`
	Notes     string             `json:"notes"`
}

func (u StockUpdate) validate() (StockUpdate, error) {
	if u.ProductID == uuid.Nil {
		return u, apperr.InvalidInput("product_id is required")
	}
	if u.Delta == 0 {
		return u, apperr.InvalidInput("delta must not be zero")
	}
	if u.Reason == "" {
		u.Reason = models.ReasonAdjustment
	}
	if !u.Reason.Valid() {
		return u, apperr.InvalidInput("unknown reason %q", u.Reason)
	}
	return u, nil
}

// UpdateStock applies one adjustment atomically.
func (c *Coordinator) UpdateStock(ctx context.Context, u StockUpdate) (*models.Product, error) {
	u, err := u.validate()
	if err != nil {
		return nil, err
	}

	var product *models.Product
	err = c.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		product, err = adjust(ctx, tx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("stock updated",
		zap.Stringer("product_id", product.ID),
		zap.Int("delta", u.Delta),
		zap.String("reason", string(u.Reason)),
		zap.Int("stock", product.Stock),
	)
	return product, nil
}

func adjust(ctx context.Context, tx store.Store, u StockUpdate) (*models.Product, error) {
	locked, err := lockProducts(ctx, tx, []uuid.UUID{u.ProductID}, false)
	if err != nil {
		return nil, err
	}
	p := locked[u.ProductID]
	if err := ApplyStock(ctx, tx, p, u.Delta, u.Reason, u.Reference, u.Notes); err != nil {
		return nil, err
	}
	return p, nil
}

// BulkResult reports the outcome of one item of BulkUpdateStock.
type BulkResult struct {
	ProductID uuid.UUID `json:"product_id"`
	Success   bool      `json:"success"`
	NewStock  int       `json:"new_stock,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// BulkUpdateStock applies each update in its own savepoint inside one
// transaction. A failing item is reported and leaves its siblings applied.
func (c *Coordinator) BulkUpdateStock(ctx context.Context, updates []StockUpdate) ([]BulkResult, error) {
	if len(updates) == 0 {
		return nil, apperr.InvalidInput("updates must not be empty")
	}

	results := make([]BulkResult, len(updates))
	err := c.store.Atomic(ctx, func(tx store.Store) error {
		for i, u := range updates {
			results[i] = BulkResult{ProductID: u.ProductID}

			u, err := u.validate()
			if err != nil {
				results[i].Error = apperr.Message(err)
				continue
			}

			var p *models.Product
			err = tx.Atomic(ctx, func(sp store.Store) error {
				var err error
				p, err = adjust(ctx, sp, u)
				return err
			})
			if err != nil {
				if apperr.KindOf(err) == apperr.KindInternal {
					c.log.Error("bulk stock item failed", zap.Stringer("product_id", u.ProductID), zap.Error(err))
				}
				results[i].Error = apperr.Message(err)
				continue
			}
			results[i].Success = true
			results[i].NewStock = p.Stock
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err, "bulk stock update")
	}
	return results, nil
}

// InventoryView is the stock summary of one product.
type InventoryView struct {
	ProductID         uuid.UUID                 `json:"product_id"`
	Name              string                    `json:"name"`
	Stock             int                       `json:"stock"`
	LowStockThreshold int                       `json:"low_stock_threshold"`
	Status            models.ProductStatus      `json:"status"`
	LowStock          bool                      `json:"low_stock"`
	Recent            []models.InventoryHistory `json:"recent_history"`
}

func (c *Coordinator) product(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := c.store.Products().ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("product %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "load product")
	}
	return p, nil
}

func (c *Coordinator) Inventory(ctx context.Context, productID uuid.UUID) (*InventoryView, error) {
	p, err := c.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	recent, _, err := c.store.Inventory().History(ctx, productID, store.HistoryFilter{Page: store.Page{Limit: recentHistory}})
	if err != nil {
		return nil, apperr.Internal(err, "load inventory history")
	}
	return &InventoryView{
		ProductID:         p.ID,
		Name:              p.Name,
		Stock:             p.Stock,
		LowStockThreshold: p.LowStockThreshold,
		Status:            p.Status,
		LowStock:          p.Stock <= p.LowStockThreshold,
		Recent:            recent,
	}, nil
}

func (c *Coordinator) History(ctx context.Context, productID uuid.UUID, f store.HistoryFilter) ([]models.InventoryHistory, int64, error) {
	if _, err := c.product(ctx, productID); err != nil {
		return nil, 0, err
	}
	if f.Reason != "" && !f.Reason.Valid() {
		return nil, 0, apperr.InvalidInput("unknown reason %q", f.Reason)
	}
	rows, total, err := c.store.Inventory().History(ctx, productID, f)
	if err != nil {
		return nil, 0, apperr.Internal(err, "load inventory history")
	}
	return rows, total, nil
}

// LowStock lists products at or below threshold, or at or below their own
// threshold when none is given.
func (c *Coordinator) LowStock(ctx context.Context, threshold *int) ([]models.Product, error) {
	if threshold != nil && *threshold < 0 {
		return nil, apperr.InvalidInput("threshold must not be negative")
	}
	products, err := c.store.Products().LowStock(ctx, threshold)
	if err != nil {
		return nil, apperr.Internal(err, "list low stock")
	}
	return products, nil
}

func (c *Coordinator) SetLowStockThreshold(ctx context.Context, productID uuid.UUID, threshold int) (*models.Product, error) {
	if threshold < 0 {
		return nil, apperr.InvalidInput("threshold must not be negative")
	}
	var product *models.Product
	err := c.store.Atomic(ctx, func(tx store.Store) error {
		locked, err := lockProducts(ctx, tx, []uuid.UUID{productID}, false)
		if err != nil {
			return err
		}
		product = locked[productID]
		product.LowStockThreshold = threshold
		if err := tx.Products().Save(ctx, product); err != nil {
			return apperr.Internal(err, "save product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}
