package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

type productRepo struct {
	db *gorm.DB
}

func (r productRepo) ByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r productRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := forUpdate(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r productRepo) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", like, like)
	}
	if f.MinPrice != nil {
		query = query.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("price <= ?", *f.MaxPrice)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	if err := paginate(query.Order("created_at DESC"), f.Page).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r productRepo) LowStock(ctx context.Context, threshold *int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if threshold != nil {
		query = query.Where("stock <= ?", *threshold)
	} else {
		query = query.Where("stock <= low_stock_threshold")
	}

	var products []models.Product
	err := query.Order("stock ASC, name ASC").Find(&products).Error
	return products, err
}

func (r productRepo) InCategories(ctx context.Context, categories []string, limit int) ([]models.Product, error) {
	var products []models.Product
	if len(categories) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).
		Where("category IN ?", categories).
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r productRepo) TopRated(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("products.*").
		Joins("LEFT JOIN reviews ON reviews.product_id = products.id").
		Group("products.id").
		Order("COALESCE(AVG(reviews.rating), 0) DESC, products.created_at DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r productRepo) Create(ctx context.Context, p *models.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r productRepo) Save(ctx context.Context, p *models.Product) error {
	return translate(r.db.WithContext(ctx).Save(p).Error)
}

func (r productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return deleted(r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id))
}

type inventoryRepo struct {
	db *gorm.DB
}

func (r inventoryRepo) Append(ctx context.Context, h *models.InventoryHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(h).Error
}

func (r inventoryRepo) History(ctx context.Context, productID uuid.UUID, f HistoryFilter) ([]models.InventoryHistory, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryHistory{}).Where("product_id = ?", productID)
	if f.Reason != "" {
		query = query.Where("reason = ?", f.Reason)
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

	var rows []models.InventoryHistory
	if err := paginate(query.Order("created_at DESC"), f.Page).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
