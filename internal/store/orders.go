package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/models"
)

type orderRepo struct {
	db *gorm.DB
}

func itemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r orderRepo) Create(ctx context.Context, o *models.Order) error {
	for i := range o.Items {
		o.Items[i].Position = i
	}
	return translate(r.db.WithContext(ctx).Create(o).Error)
}

func (r orderRepo) ByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items", itemsByPosition).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r orderRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := forUpdate(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	if err := r.db.WithContext(ctx).Scopes(itemsByPosition).Where("order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r orderRepo) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := paginate(query.Order("created_at DESC"), f.Page).Preload("Items", itemsByPosition).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r orderRepo) Save(ctx context.Context, o *models.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(o).Error; err != nil {
		return translate(err)
	}
	for _, item := range o.Items {
		if err := db.Model(&models.OrderItem{}).
			Where("id = ?", item.ID).
			Update("refunded_quantity", item.RefundedQuantity).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r orderRepo) HasDelivered(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?", userID, models.OrderDelivered, productID).
		Count(&count).Error
	return count > 0, err
}
