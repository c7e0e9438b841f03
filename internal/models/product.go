package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ProductStatus is the availability of a product, derived from its stock.
type ProductStatus string

const (
	ProductActive     ProductStatus = "ACTIVE"
	ProductOutOfStock ProductStatus = "OUT_OF_STOCK"
)

// DefaultLowStockThreshold is applied to products created without one.
const DefaultLowStockThreshold = 5

// DeriveAvailability maps a stock counter to the product status. It is the
// only place a product status is computed.
func DeriveAvailability(stock int) ProductStatus {
	if stock <= 0 {
		return ProductOutOfStock
	}
	return ProductActive
}

type Product struct {
	BaseModel
	Name              string          `gorm:"not null" json:"name"`
	Slug              string          `gorm:"uniqueIndex" json:"slug"`
	Description       string          `json:"description"`
	Category          string          `gorm:"index" json:"category"`
	Price             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Images            pq.StringArray  `gorm:"type:text[]" json:"images"`
	Stock             int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	LowStockThreshold int             `gorm:"not null" json:"low_stock_threshold"`
	Status            ProductStatus   `gorm:"type:varchar(16);not null;index" json:"status"`
}

// StockReason classifies an inventory history entry.
type StockReason string

const (
	ReasonAdjustment     StockReason = "ADJUSTMENT"
	ReasonRestock        StockReason = "RESTOCK"
	ReasonDamage         StockReason = "DAMAGE"
	ReasonOrder          StockReason = "ORDER"
	ReasonOrderCancelled StockReason = "ORDER_CANCELLED"
	ReasonRefund         StockReason = "REFUND"
)

// Valid reports whether r is a known reason code.
func (r StockReason) Valid() bool {
	switch r {
	case ReasonAdjustment, ReasonRestock, ReasonDamage, ReasonOrder, ReasonOrderCancelled, ReasonRefund:
		return true
	}
	return false
}

// InventoryHistory is an immutable record of one stock change.
type InventoryHistory struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID   `gorm:"type:uuid;index;not null" json:"product_id"`
	Delta      int         `gorm:"not null" json:"delta"`
	Reason     StockReason `gorm:"type:varchar(32);not null;index" json:"reason"`
	Reference  string      `json:"reference"`
	Notes      string      `json:"notes"`
	StockAfter int         `gorm:"not null" json:"stock_after"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
}

// TableName keeps the history table name singular.
func (InventoryHistory) TableName() string {
	return "inventory_history"
}
