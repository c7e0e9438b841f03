package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

type accountRepo struct {
	db *gorm.DB
}

func (r accountRepo) ByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

func (r accountRepo) ByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return r.first(r.db.WithContext(ctx), "phone = ?", phone)
}

func (r accountRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

func (r accountRepo) LockByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "phone = ?", phone)
}

func (r accountRepo) first(db *gorm.DB, query string, arg any) (*models.Account, error) {
	var account models.Account
	if err := db.First(&account, query, arg).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r accountRepo) Create(ctx context.Context, a *models.Account) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r accountRepo) Save(ctx context.Context, a *models.Account) error {
	return translate(r.db.WithContext(ctx).Save(a).Error)
}

func (r accountRepo) List(ctx context.Context, search string, page Page) ([]models.Account, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Account{})
	if search != "" {
		query = query.Where("phone LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accounts []models.Account
	if err := paginate(query.Order("created_at DESC"), page).Find(&accounts).Error; err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

type addressRepo struct {
	db *gorm.DB
}

func (r addressRepo) ByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).First(&address, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &address, nil
}

func (r addressRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&addresses).Error
	return addresses, err
}

func (r addressRepo) Create(ctx context.Context, a *models.Address) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if a.IsDefault {
			if err := tx.Model(&models.Address{}).
				Where("user_id = ?", a.UserID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return translate(tx.Create(a).Error)
	})
}

func (r addressRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return deleted(r.db.WithContext(ctx).Delete(&models.Address{}, "id = ?", id))
}
