// Package store is the transactional repository contract shared by the
// services. The GORM implementation lives in this package; memstore holds an
// in-memory implementation with the same semantics.
package store

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
)

// Store groups the repositories. Repositories obtained from the tx argument
// of Atomic run inside that transaction; calling Atomic on a transactional
// Store opens a savepoint.
type Store interface {
	Accounts() AccountRepository
	Addresses() AddressRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Orders() OrderRepository
	Coupons() CouponRepository
	Carts() CartRepository
	Reviews() ReviewRepository
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

// Page is an offset/limit window.
type Page struct {
	Limit  int
	Offset int
}

type AccountRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ByPhone(ctx context.Context, phone string) (*models.Account, error)
	// LockByID and LockByPhone hold a row lock until the enclosing
	// transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	LockByPhone(ctx context.Context, phone string) (*models.Account, error)
	Create(ctx context.Context, a *models.Account) error
	Save(ctx context.Context, a *models.Account) error
	List(ctx context.Context, search string, page Page) ([]models.Account, int64, error)
}

type AddressRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Create(ctx context.Context, a *models.Address) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Status   models.ProductStatus
	Page     Page
}

type ProductRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	// LowStock returns products with stock at or below threshold, or at or
	// below their own threshold when threshold is nil.
	LowStock(ctx context.Context, threshold *int) ([]models.Product, error)
	// InCategories returns up to limit products from categories, newest first.
	InCategories(ctx context.Context, categories []string, limit int) ([]models.Product, error)
	// TopRated returns up to limit products by average review rating;
	// unreviewed products rank as zero.
	TopRated(ctx context.Context, limit int) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Save(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// HistoryFilter narrows inventory history listings.
type HistoryFilter struct {
	Reason models.StockReason
	From   *time.Time
	To     *time.Time
	Page   Page
}

type InventoryRepository interface {
	Append(ctx context.Context, h *models.InventoryHistory) error
	History(ctx context.Context, productID uuid.UUID, f HistoryFilter) ([]models.InventoryHistory, int64, error)
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	UserID *uuid.UUID
	Status models.OrderStatus
	From   *time.Time
	To     *time.Time
	Page   Page
}

type OrderRepository interface {
	// Create inserts the order together with its items.
	Create(ctx context.Context, o *models.Order) error
	ByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	// Save persists the order columns and item refund counters.
	Save(ctx context.Context, o *models.Order) error
	// HasDelivered reports whether userID has a DELIVERED order containing
	// productID.
	HasDelivered(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type CouponRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	ByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Codes(ctx context.Context) ([]string, error)
	Create(ctx context.Context, c *models.Coupon) error
	Save(ctx context.Context, c *models.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CartRepository interface {
	// ByUser returns the cart with its items, or ErrNotFound.
	ByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, c *models.Cart) error
	Item(ctx context.Context, itemID uuid.UUID) (*models.CartItem, *models.Cart, error)
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type ReviewRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	Create(ctx context.Context, r *models.Review) error
	Save(ctx context.Context, r *models.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	ByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
	ByUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error)
	Flagged(ctx context.Context) ([]models.Review, error)
	Stats(ctx context.Context, productID uuid.UUID) (models.RatingStats, error)
	// FlagStale flags unflagged reviews rated below maxRating created before
	// cutoff and returns how many rows changed.
	FlagStale(ctx context.Context, cutoff time.Time, maxRating int) (int64, error)
}
