// Package orders keeps order records and product stock consistent. Every
// stock change goes through ApplyStock inside a store transaction.
package orders

import (
	"bytes"
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

// Notifier tells customers and staff about order events. Calls happen after
// the transaction commits and their failures never undo it.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	SendStatusUpdate(ctx context.Context, order *models.Order) error
	SendRefundConfirmation(ctx context.Context, order *models.Order, amount decimal.Decimal) error
}

type Coordinator struct {
	store    store.Store
	notifier Notifier
	log      *zap.Logger
}

func NewCoordinator(st store.Store, notifier Notifier, log *zap.Logger) *Coordinator {
	return &Coordinator{store: st, notifier: notifier, log: log.Named("orders")}
}

type LineRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type CreateRequest struct {
	Items       []LineRequest      `json:"items"`
	AddressID   *uuid.UUID         `json:"address_id"`
	PaymentMode models.PaymentMode `json:"payment_mode"`
}

// Placed is the result of CreateOrder.
type Placed struct {
	Order            *models.Order `json:"order"`
	NotificationSent bool          `json:"notification_sent"`
}

// ApplyStock moves p's stock by delta, derives its availability and records
// the change. It must run inside a transaction holding p's row lock.
func ApplyStock(ctx context.Context, tx store.Store, p *models.Product, delta int, reason models.StockReason, reference, notes string) error {
	next := p.Stock + delta
	if next < 0 {
		return apperr.InsufficientStock("insufficient stock for %q: requested %d, available %d", p.Name, -delta, p.Stock)
	}
	p.Stock = next
	p.Status = models.DeriveAvailability(next)
	if err := tx.Products().Save(ctx, p); err != nil {
		return apperr.Internal(err, "save product")
	}

	entry := &models.InventoryHistory{
		ProductID:  p.ID,
		Delta:      delta,
		Reason:     reason,
		Reference:  reference,
		Notes:      notes,
		StockAfter: next,
	}
	if err := tx.Inventory().Append(ctx, entry); err != nil {
		return apperr.Internal(err, "append inventory history")
	}
	return nil
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// lockProducts locks ids in ascending order so concurrent transactions
// acquire row locks in the same sequence. Missing products fail with
// NotFound unless skipMissing is set.
func lockProducts(ctx context.Context, tx store.Store, ids []uuid.UUID, skipMissing bool) (map[uuid.UUID]*models.Product, error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, compareIDs)
	sorted = slices.Compact(sorted)

	locked := make(map[uuid.UUID]*models.Product, len(sorted))
	for _, id := range sorted {
		p, err := tx.Products().LockByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			if skipMissing {
				continue
			}
			return nil, apperr.NotFound("product %s not found", id)
		}
		if err != nil {
			return nil, apperr.Internal(err, "lock product")
		}
		locked[id] = p
	}
	return locked, nil
}

func mergeLines(lines []LineRequest) ([]LineRequest, error) {
	if len(lines) == 0 {
		return nil, apperr.InvalidInput("order must contain at least one item")
	}
	merged := make([]LineRequest, 0, len(lines))
	index := map[uuid.UUID]int{}
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, apperr.InvalidInput("product_id is required")
		}
		if line.Quantity <= 0 {
			return nil, apperr.InvalidInput("quantity must be positive")
		}
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

// CreateOrder reserves stock for every line and records the order in one
// transaction. Line prices are frozen from the current product price.
func (c *Coordinator) CreateOrder(ctx context.Context, caller models.Caller, req CreateRequest) (*Placed, error) {
	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}
	if !req.PaymentMode.Valid() {
		return nil, apperr.InvalidInput("payment_mode must be COD or ONLINE")
	}
	if req.AddressID != nil {
		address, err := c.store.Addresses().ByID(ctx, *req.AddressID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && address.UserID != caller.UserID) {
			return nil, apperr.NotFound("address not found")
		}
		if err != nil {
			return nil, apperr.Internal(err, "load address")
		}
	}

	order := &models.Order{
		UserID:        caller.UserID,
		AddressID:     req.AddressID,
		PaymentMode:   req.PaymentMode,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentUnpaid,
	}
	order.EnsureID()
	reference := order.ID.String()

	err = c.store.Atomic(ctx, func(tx store.Store) error {
		ids := make([]uuid.UUID, len(lines))
		for i, line := range lines {
			ids[i] = line.ProductID
		}
		locked, err := lockProducts(ctx, tx, ids, false)
		if err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(lines))
		total := decimal.Zero
		for _, line := range lines {
			p := locked[line.ProductID]
			if err := ApplyStock(ctx, tx, p, -line.Quantity, models.ReasonOrder, reference, ""); err != nil {
				return err
			}
			item := models.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				UnitPrice:   p.Price,
			}
			total = total.Add(item.LineTotal())
			items = append(items, item)
		}

		order.Items = items
		order.TotalAmount = total
		order.RefundedAmount = decimal.Zero
		if err := tx.Orders().Create(ctx, order); err != nil {
			return apperr.Internal(err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("order placed",
		zap.Stringer("order_id", order.ID),
		zap.Stringer("user_id", caller.UserID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	sent := c.notify(order, "order confirmation", func() error {
		return c.notifier.SendOrderConfirmation(ctx, order)
	})
	return &Placed{Order: order, NotificationSent: sent}, nil
}

func (c *Coordinator) notify(order *models.Order, what string, send func() error) bool {
	if c.notifier == nil {
		return false
	}
	if err := send(); err != nil {
		c.log.Warn("notification failed", zap.String("kind", what), zap.Stringer("order_id", order.ID), zap.Error(err))
		return false
	}
	return true
}

// GetOrder returns an order visible to caller.
func (c *Coordinator) GetOrder(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Order, error) {
	order, err := c.store.Orders().ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load order")
	}
	if order.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, apperr.Forbidden("order belongs to another account")
	}
	return order, nil
}

func (c *Coordinator) ListMyOrders(ctx context.Context, caller models.Caller, page store.Page) ([]models.Order, int64, error) {
	return c.ListOrders(ctx, store.OrderFilter{UserID: &caller.UserID, Page: page})
}

func (c *Coordinator) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, int64, error) {
	orders, total, err := c.store.Orders().List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Internal(err, "list orders")
	}
	return orders, total, nil
}
