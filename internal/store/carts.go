package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

type cartRepo struct {
	db *gorm.DB
}

func (r cartRepo) ByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&cart, "user_id = ?", userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (r cartRepo) Create(ctx context.Context, c *models.Cart) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r cartRepo) Item(ctx context.Context, itemID uuid.UUID) (*models.CartItem, *models.Cart, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, nil, translate(err)
	}
	var cart models.Cart
	if err := r.db.WithContext(ctx).First(&cart, "id = ?", item.CartID).Error; err != nil {
		return nil, nil, translate(err)
	}
	return &item, &cart, nil
}

func (r cartRepo) SaveItem(ctx context.Context, item *models.CartItem) error {
	return translate(r.db.WithContext(ctx).Save(item).Error)
}

func (r cartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return deleted(r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", itemID))
}

func (r cartRepo) Clear(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
