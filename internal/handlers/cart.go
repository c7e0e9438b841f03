package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/coupon"
)

// CartHandler serves the caller's cart.
type CartHandler struct {
	carts   *cart.Service
	coupons *coupon.Service
}

func NewCartHandler(carts *cart.Service, coupons *coupon.Service) *CartHandler {
	return &CartHandler{carts: carts, coupons: coupons}
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	view, err := h.carts.Get(c.UserContext(), cl)
	if err != nil {
		return err
	}
	return respond(c, view)
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	var req cart.AddRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.carts.AddItem(c.UserContext(), cl, req)
	if err != nil {
		return err
	}
	return respond(c, view)
}

func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req cart.UpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.carts.UpdateItem(c.UserContext(), cl, id, req)
	if err != nil {
		return err
	}
	return respond(c, view)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.carts.RemoveItem(c.UserContext(), cl, id)
	if err != nil {
		return err
	}
	return respond(c, view)
}

func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.carts.Clear(c.UserContext(), cl); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "cart cleared"})
}

type couponCodeRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon prices the selected cart items with a coupon.
func (h *CartHandler) ApplyCoupon(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	var req couponCodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	breakdown, err := h.coupons.ApplyToCart(c.UserContext(), cl, req.Code)
	if err != nil {
		return err
	}
	return respond(c, breakdown)
}
