package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/coupon"
)

// CouponHandler exposes coupon pricing and admin CRUD.
type CouponHandler struct {
	coupons *coupon.Service
}

func NewCouponHandler(coupons *coupon.Service) *CouponHandler {
	return &CouponHandler{coupons: coupons}
}

type applyCouponRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Apply computes the discount of a coupon for a subtotal.
func (h *CouponHandler) Apply(c *fiber.Ctx) error {
	var req applyCouponRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Code == "" {
		return apperr.InvalidInput("code is required")
	}
	if !req.Subtotal.IsPositive() {
		return apperr.InvalidInput("subtotal must be positive")
	}
	breakdown, err := h.coupons.Apply(c.UserContext(), req.Code, req.Subtotal)
	if err != nil {
		return err
	}
	return respond(c, breakdown)
}

func (h *CouponHandler) GetCoupon(c *fiber.Ctx) error {
	cp, err := h.coupons.Get(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return respond(c, cp)
}

func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	list, err := h.coupons.List(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, list)
}

func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req coupon.Input
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cp, err := h.coupons.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return created(c, cp)
}

func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req coupon.Input
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cp, err := h.coupons.Update(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return respond(c, cp)
}

func (h *CouponHandler) DeleteCoupon(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.coupons.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "coupon deleted"})
}
