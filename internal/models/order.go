package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment stage of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderReturned  OrderStatus = "RETURNED"
)

// PaymentStatus tracks money movement for an order.
type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "UNPAID"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
)

// PaymentMode is how the customer intends to pay.
type PaymentMode string

const (
	PaymentCOD    PaymentMode = "COD"
	PaymentOnline PaymentMode = "ONLINE"
)

// Valid reports whether m is a supported payment mode.
func (m PaymentMode) Valid() bool {
	return m == PaymentCOD || m == PaymentOnline
}

type Order struct {
	BaseModel
	UserID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	AddressID      *uuid.UUID      `gorm:"type:uuid" json:"address_id"`
	PaymentMode    PaymentMode     `gorm:"type:varchar(16);not null" json:"payment_mode"`
	Status         OrderStatus     `gorm:"type:varchar(16);not null;index" json:"status"`
	PaymentStatus  PaymentStatus   `gorm:"type:varchar(24);not null" json:"payment_status"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	RefundedAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"refunded_amount"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
	Items          []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	Position         int             `gorm:"not null" json:"-"`
	ProductID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"product_id"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	RefundedQuantity int             `gorm:"not null;default:0" json:"refunded_quantity"`
}

// LineTotal is the frozen price of the line.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Refundable is the quantity not yet refunded.
func (i OrderItem) Refundable() int {
	return i.Quantity - i.RefundedQuantity
}
