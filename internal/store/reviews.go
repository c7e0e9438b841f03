package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

type reviewRepo struct {
	db *gorm.DB
}

func (r reviewRepo) ByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &review, nil
}

func (r reviewRepo) Create(ctx context.Context, rv *models.Review) error {
	return translate(r.db.WithContext(ctx).Create(rv).Error)
}

func (r reviewRepo) Save(ctx context.Context, rv *models.Review) error {
	return translate(r.db.WithContext(ctx).Save(rv).Error)
}

func (r reviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return deleted(r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id))
}

func (r reviewRepo) ByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	return r.find(ctx, "product_id = ?", productID)
}

func (r reviewRepo) ByUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	return r.find(ctx, "user_id = ?", userID)
}

func (r reviewRepo) Flagged(ctx context.Context) ([]models.Review, error) {
	return r.find(ctx, "flagged = ?", true)
}

func (r reviewRepo) find(ctx context.Context, query string, arg any) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).Where(query, arg).Order("created_at DESC").Find(&reviews).Error
	return reviews, err
}

func (r reviewRepo) Stats(ctx context.Context, productID uuid.UUID) (models.RatingStats, error) {
	var stats models.RatingStats
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("product_id = ?", productID).
		Scan(&stats).Error
	return stats, err
}

func (r reviewRepo) FlagStale(ctx context.Context, cutoff time.Time, maxRating int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("flagged = ? AND rating < ? AND created_at < ?", false, maxRating, cutoff).
		Update("flagged", true)
	return res.RowsAffected, res.Error
}
