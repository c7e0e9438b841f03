// Package coupon computes discounts and manages coupon records.
package coupon

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Breakdown is the result of applying one coupon to a subtotal.
type Breakdown struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Final    decimal.Decimal `json:"final"`
}

// Apply computes the discount c grants on subtotal at now. It has no side
// effects.
func Apply(c *models.Coupon, subtotal decimal.Decimal, now time.Time) (Breakdown, error) {
	if subtotal.IsNegative() {
		return Breakdown{}, apperr.InvalidInput("subtotal must not be negative")
	}
	if !c.Active {
		return Breakdown{}, apperr.InvalidOrExpired("coupon %s is not active", c.Code)
	}
	if now.After(c.ExpiresAt) {
		return Breakdown{}, apperr.InvalidOrExpired("coupon %s has expired", c.Code)
	}
	if c.MinOrder != nil && subtotal.LessThan(*c.MinOrder) {
		return Breakdown{}, apperr.InvalidOrExpired("coupon %s requires a minimum order of %s", c.Code, c.MinOrder.StringFixed(2))
	}

	var discount decimal.Decimal
	switch c.Type {
	case models.CouponFlat:
		discount = decimal.Min(c.Value, subtotal)
	case models.CouponPercentage:
		discount = subtotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscount != nil {
			discount = decimal.Min(discount, *c.MaxDiscount)
		}
	default:
		return Breakdown{}, apperr.InvalidOrExpired("coupon %s has unknown type %q", c.Code, c.Type)
	}

	discount = discount.Round(2)
	final := decimal.Max(subtotal.Sub(discount), decimal.Zero).Round(2)
	return Breakdown{
		Code:     c.Code,
		Subtotal: subtotal.Round(2),
		Discount: discount,
		Final:    final,
	}, nil
}
