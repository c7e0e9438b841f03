package models

import "github.com/google/uuid"

type Cart struct {
	BaseModel
	UserID uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Items  []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

type CartItem struct {
	BaseModel
	CartID    uuid.UUID `gorm:"type:uuid;index;not null" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Product   *Product  `gorm:"-" json:"product,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Selected  bool      `gorm:"not null" json:"selected"`
}
