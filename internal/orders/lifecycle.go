package orders

import (
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

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:   {models.OrderDelivered},
	models.OrderDelivered: {models.OrderReturned},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to models.OrderStatus) bool {
	return slices.Contains(transitions[from], to)
}

func lockOrder(ctx context.Context, tx store.Store, id uuid.UUID) (*models.Order, error) {
	order, err := tx.Orders().LockByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "lock order")
	}
	return order, nil
}

// restock returns quantities to stock, locking products in id order. Products
// deleted since the order was placed are skipped.
func (c *Coordinator) restock(ctx context.Context, tx store.Store, order *models.Order, qty map[uuid.UUID]int, reason models.StockReason) error {
	ids := make([]uuid.UUID, 0, len(qty))
	for id, n := range qty {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	locked, err := lockProducts(ctx, tx, ids, true)
	if err != nil {
		return err
	}

	slices.SortFunc(ids, compareIDs)
	for _, id := range ids {
		p, ok := locked[id]
		if !ok {
			c.log.Warn("restock skipped for missing product", zap.Stringer("order_id", order.ID), zap.Stringer("product_id", id))
			continue
		}
		if err := ApplyStock(ctx, tx, p, qty[id], reason, order.ID.String(), ""); err != nil {
			return err
		}
	}
	return nil
}

func purchased(order *models.Order) map[uuid.UUID]int {
	qty := make(map[uuid.UUID]int, len(order.Items))
	for _, item := range order.Items {
		qty[item.ProductID] += item.Quantity
	}
	return qty
}

// CancelOrder lets the owner cancel a pending order and restores its stock.
func (c *Coordinator) CancelOrder(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := c.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		if order, err = lockOrder(ctx, tx, id); err != nil {
			return err
		}
		if order.UserID != caller.UserID {
			return apperr.Forbidden("order belongs to another account")
		}
		if order.Status != models.OrderPending {
			return apperr.InvalidState("order is %s and can no longer be cancelled", order.Status)
		}
		return c.cancel(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("order cancelled", zap.Stringer("order_id", order.ID))
	c.notify(order, "status update", func() error {
		return c.notifier.SendStatusUpdate(ctx, order)
	})
	return order, nil
}

func (c *Coordinator) cancel(ctx context.Context, tx store.Store, order *models.Order) error {
	if err := c.restock(ctx, tx, order, purchased(order), models.ReasonOrderCancelled); err != nil {
		return err
	}
	order.Status = models.OrderCancelled
	if err := tx.Orders().Save(ctx, order); err != nil {
		return apperr.Internal(err, "save order")
	}
	return nil
}

// UpdateStatus moves an order along its fulfillment path. Cancelling through
// here restores stock exactly like CancelOrder.
func (c *Coordinator) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, trackingNumber string) (*models.Order, error) {
	var order *models.Order
	err := c.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		if order, err = lockOrder(ctx, tx, id); err != nil {
			return err
		}
		if !CanTransition(order.Status, status) {
			return apperr.InvalidState("cannot move order from %s to %s", order.Status, status)
		}
		if trackingNumber != "" {
			order.TrackingNumber = trackingNumber
		}
		if status == models.OrderCancelled {
			return c.cancel(ctx, tx, order)
		}
		order.Status = status
		if err := tx.Orders().Save(ctx, order); err != nil {
			return apperr.Internal(err, "save order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("order status updated", zap.Stringer("order_id", order.ID), zap.String("status", string(order.Status)))
	c.notify(order, "status update", func() error {
		return c.notifier.SendStatusUpdate(ctx, order)
	})
	return order, nil
}

// MarkPaid records payment for an unpaid order.
func (c *Coordinator) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := c.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		if order, err = lockOrder(ctx, tx, id); err != nil {
			return err
		}
		if order.Status == models.OrderCancelled {
			return apperr.InvalidState("order is cancelled")
		}
		if order.PaymentStatus != models.PaymentUnpaid {
			return apperr.InvalidState("order payment is already %s", order.PaymentStatus)
		}
		order.PaymentStatus = models.PaymentPaid
		if err := tx.Orders().Save(ctx, order); err != nil {
			return apperr.Internal(err, "save order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type RefundLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type RefundRequest struct {
	// Lines empty refunds everything still refundable.
	Lines   []RefundLine `json:"lines"`
	Restock bool         `json:"restock"`
}

type Refunded struct {
	Order            *models.Order   `json:"order"`
	Amount           decimal.Decimal `json:"amount"`
	NotificationSent bool            `json:"notification_sent"`
}

// Refund returns money for some or all units of a paid order. No line can be
// refunded beyond its purchased quantity. Restocking is only possible once
// goods are back from the customer, so a unit is never restored twice.
func (c *Coordinator) Refund(ctx context.Context, id uuid.UUID, req RefundRequest) (*Refunded, error) {
	var (
		order  *models.Order
		amount decimal.Decimal
	)
	err := c.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		if order, err = lockOrder(ctx, tx, id); err != nil {
			return err
		}
		if order.PaymentStatus != models.PaymentPaid && order.PaymentStatus != models.PaymentPartiallyRefunded {
			return apperr.InvalidState("order payment is %s, nothing to refund", order.PaymentStatus)
		}
		if req.Restock && order.Status != models.OrderDelivered && order.Status != models.OrderReturned {
			return apperr.InvalidState("stock can only be restored for delivered or returned orders")
		}

		plan, err := refundPlan(order, req.Lines)
		if err != nil {
			return err
		}

		amount = decimal.Zero
		restored := map[uuid.UUID]int{}
		for i, q := range plan {
			item := &order.Items[i]
			item.RefundedQuantity += q
			amount = amount.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(q))))
			restored[item.ProductID] += q
		}
		if req.Restock {
			if err := c.restock(ctx, tx, order, restored, models.ReasonRefund); err != nil {
				return err
			}
		}

		order.RefundedAmount = order.RefundedAmount.Add(amount)
		order.PaymentStatus = models.PaymentRefunded
		for _, item := range order.Items {
			if item.Refundable() > 0 {
				order.PaymentStatus = models.PaymentPartiallyRefunded
				break
			}
		}
		if err := tx.Orders().Save(ctx, order); err != nil {
			return apperr.Internal(err, "save order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("order refunded", zap.Stringer("order_id", order.ID), zap.String("amount", amount.StringFixed(2)))
	sent := c.notify(order, "refund confirmation", func() error {
		return c.notifier.SendRefundConfirmation(ctx, order, amount)
	})
	return &Refunded{Order: order, Amount: amount, NotificationSent: sent}, nil
}

// refundPlan maps item index to the quantity to refund.
func refundPlan(order *models.Order, lines []RefundLine) (map[int]int, error) {
	plan := map[int]int{}
	if len(lines) == 0 {
		for i, item := range order.Items {
			if n := item.Refundable(); n > 0 {
				plan[i] = n
			}
		}
		if len(plan) == 0 {
			return nil, apperr.InvalidState("order is already fully refunded")
		}
		return plan, nil
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, apperr.InvalidInput("refund quantity must be positive")
		}
		idx := slices.IndexFunc(order.Items, func(item models.OrderItem) bool {
			return item.ProductID == line.ProductID
		})
		if idx < 0 {
			return nil, apperr.NotFound("product %s is not part of the order", line.ProductID)
		}
		plan[idx] += line.Quantity
		if item := order.Items[idx]; plan[idx] > item.Refundable() {
			return nil, apperr.InvalidState("cannot refund %d of %q: only %d refundable", plan[idx], item.ProductName, item.Refundable())
		}
	}
	return plan, nil
}
