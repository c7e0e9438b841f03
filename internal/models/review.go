package models

import "github.com/google/uuid"

type Review struct {
	BaseModel
	UserID           uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ProductID        uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`
	Rating           int       `gorm:"not null" json:"rating"`
	Body             string    `json:"body"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	Flagged          bool      `gorm:"index" json:"flagged"`
}

// RatingStats summarizes the reviews of one product.
type RatingStats struct {
	Average float64 `json:"average"`
	Total   int64   `json:"total"`
}
