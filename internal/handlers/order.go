package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/orders"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/utils"
)

// OrderHandler exposes the order lifecycle.
type OrderHandler struct {
	coordinator *orders.Coordinator
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(coordinator *orders.Coordinator) *OrderHandler {
	return &OrderHandler{coordinator: coordinator}
}

// CreateOrder places an order for the caller.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	var req orders.CreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	placed, err := h.coordinator.CreateOrder(c.UserContext(), cl, req)
	if err != nil {
		return err
	}
	return created(c, placed)
}

// ListOrders returns the caller's orders.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	pg := utils.ParsePagination(c)
	list, total, err := h.coordinator.ListMyOrders(c.UserContext(), cl, pg.Window())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": list, "pagination": pg.Meta(total)})
}

// GetOrder returns one order visible to the caller.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.coordinator.GetOrder(c.UserContext(), cl, id)
	if err != nil {
		return err
	}
	return respond(c, order)
}

// CancelOrder cancels a pending order and restores its stock.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.coordinator.CancelOrder(c.UserContext(), cl, id)
	if err != nil {
		return err
	}
	return respond(c, order)
}

// ListAllOrders is the admin listing with filters.
func (h *OrderHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	f := store.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		Page:   pg.Window(),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.InvalidInput("invalid user_id")
		}
		f.UserID = &id
	}
	var err error
	if f.From, err = queryTime(c, "from"); err != nil {
		return err
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return err
	}

	list, total, err := h.coordinator.ListOrders(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": list, "pagination": pg.Meta(total)})
}

type statusRequest struct {
	Status         models.OrderStatus `json:"status"`
	TrackingNumber string             `json:"tracking_number"`
}

// UpdateStatus moves an order along the fulfillment graph.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	order, err := h.coordinator.UpdateStatus(c.UserContext(), id, req.Status, req.TrackingNumber)
	if err != nil {
		return err
	}
	return respond(c, order)
}

// MarkPaid records payment of an order.
func (h *OrderHandler) MarkPaid(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.coordinator.MarkPaid(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, order)
}

// Refund refunds some or all lines of a paid order.
func (h *OrderHandler) Refund(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req orders.RefundRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	refunded, err := h.coordinator.Refund(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return respond(c, refunded)
}
