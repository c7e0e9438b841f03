package store

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of a gorm.DB. The database must be opened
// with TranslateError enabled so unique violations map to ErrDuplicate.
type GormStore struct {
	db *gorm.DB
}

// NewGorm wraps an opened connection.
func NewGorm(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Accounts() AccountRepository { return accountRepo{db: s.db} }
func (s *GormStore) Addresses() AddressRepository { return addressRepo{db: s.db} }
func (s *GormStore) Products() ProductRepository { return productRepo{db: s.db} }
func (s *GormStore) Inventory() InventoryRepository { return inventoryRepo{db: s.db} }
func (s *GormStore) Orders() OrderRepository { return orderRepo{db: s.db} }
func (s *GormStore) Coupons() CouponRepository { return couponRepo{db: s.db} }
func (s *GormStore) Carts() CartRepository { return cartRepo{db: s.db} }
func (s *GormStore) Reviews() ReviewRepository { return reviewRepo{db: s.db} }

// Atomic runs fn in a transaction. gorm turns a Transaction call on an open
// transaction into a savepoint, which gives nested Atomic its semantics.
func (s *GormStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func paginate(db *gorm.DB, p Page) *gorm.DB {
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	return db
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func deleted(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
