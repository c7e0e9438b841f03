package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

type couponRepo struct {
	db *gorm.DB
}

func (r couponRepo) ByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &coupon, nil
}

func (r couponRepo) ByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &coupon, nil
}

func (r couponRepo) List(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&coupons).Error
	return coupons, err
}

func (r couponRepo) Codes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Model(&models.Coupon{}).Pluck("code", &codes).Error
	return codes, err
}

func (r couponRepo) Create(ctx context.Context, c *models.Coupon) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r couponRepo) Save(ctx context.Context, c *models.Coupon) error {
	return translate(r.db.WithContext(ctx).Save(c).Error)
}

func (r couponRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return deleted(r.db.WithContext(ctx).Delete(&models.Coupon{}, "id = ?", id))
}
