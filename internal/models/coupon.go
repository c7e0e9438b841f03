package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CouponType selects the discount formula.
type CouponType string

const (
	CouponFlat       CouponType = "FLAT"
	CouponPercentage CouponType = "PERCENTAGE"
)

type Coupon struct {
	BaseModel
	Code        string           `gorm:"uniqueIndex;not null" json:"code"`
	Type        CouponType       `gorm:"type:varchar(16);not null" json:"type"`
	Value       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"value"`
	MaxDiscount *decimal.Decimal `gorm:"type:numeric(12,2)" json:"max_discount,omitempty"`
	MinOrder    *decimal.Decimal `gorm:"type:numeric(12,2)" json:"min_order,omitempty"`
	ExpiresAt   time.Time        `gorm:"not null" json:"expires_at"`
	Active      bool             `gorm:"not null" json:"active"`
	ProductIDs  pq.StringArray   `gorm:"type:text[]" json:"product_ids"`
}

// AppliesTo reports whether the coupon covers productID. A coupon without a
// product list covers everything.
func (c *Coupon) AppliesTo(productID string) bool {
	if len(c.ProductIDs) == 0 {
		return true
	}
	for _, id := range c.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
