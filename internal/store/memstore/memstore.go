// Package memstore is an in-memory store.Store. A single mutex serializes
// access; Atomic works on a copy of the data and publishes it only when the
// callback succeeds, and nested Atomic restores a snapshot on error. Reads
// return copies, so no caller keeps a reference into the maps across either
// boundary.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

type data struct {
	accounts  map[uuid.UUID]models.Account
	addresses map[uuid.UUID]models.Address
	products  map[uuid.UUID]models.Product
	history   []models.InventoryHistory
	orders    map[uuid.UUID]models.Order
	coupons   map[uuid.UUID]models.Coupon
	carts     map[uuid.UUID]models.Cart
	cartItems []models.CartItem
	reviews   map[uuid.UUID]models.Review
}

func newData() *data {
	return &data{
		accounts:  map[uuid.UUID]models.Account{},
		addresses: map[uuid.UUID]models.Address{},
		products:  map[uuid.UUID]models.Product{},
		orders:    map[uuid.UUID]models.Order{},
		coupons:   map[uuid.UUID]models.Coupon{},
		carts:     map[uuid.UUID]models.Cart{},
		reviews:   map[uuid.UUID]models.Review{},
	}
}

// clone is shallow: stored values are replaced on write, never mutated.
func (d *data) clone() *data {
	return &data{
		accounts:  maps.Clone(d.accounts),
		addresses: maps.Clone(d.addresses),
		products:  maps.Clone(d.products),
		history:   slices.Clone(d.history),
		orders:    maps.Clone(d.orders),
		coupons:   maps.Clone(d.coupons),
		carts:     maps.Clone(d.carts),
		cartItems: slices.Clone(d.cartItems),
		reviews:   maps.Clone(d.reviews),
	}
}

// Store is safe for concurrent use.
type Store struct {
	mu   *sync.Mutex
	data *data
	inTx bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newData()}
}

func (s *Store) Accounts() store.AccountRepository   { return accounts{s} }
func (s *Store) Addresses() store.AddressRepository  { return addresses{s} }
func (s *Store) Products() store.ProductRepository   { return products{s} }
func (s *Store) Inventory() store.InventoryRepository { return inventory{s} }
func (s *Store) Orders() store.OrderRepository       { return orders{s} }
func (s *Store) Coupons() store.CouponRepository     { return coupons{s} }
func (s *Store) Carts() store.CartRepository         { return carts{s} }
func (s *Store) Reviews() store.ReviewRepository     { return reviews{s} }

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Savepoint: on error the data is rolled back in place. Repositories
	// return copies, so nothing read inside fn aliases the restored maps.
	if s.inTx {
		snapshot := s.data.clone()
		if err := fn(s); err != nil {
			*s.data = *snapshot
			return err
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, data: s.data.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	*s.data = *tx.data
	return nil
}

// lock is a no-op inside Atomic, which already holds the mutex. Callers
// inside Atomic must use the tx store only.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func stamp(b *models.BaseModel, now time.Time) {
	b.EnsureID()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func paginate[T any](items []T, p store.Page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

func newestFirst[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).After(created(items[j]))
	})
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyAccount(a models.Account) *models.Account {
	a.OTPCodeHash = clonePtr(a.OTPCodeHash)
	a.OTPExpiry = clonePtr(a.OTPExpiry)
	a.OTPRequestedAt = clonePtr(a.OTPRequestedAt)
	a.RefreshToken = clonePtr(a.RefreshToken)
	return &a
}

func copyProduct(p models.Product) *models.Product {
	p.Images = slices.Clone(p.Images)
	return &p
}

func copyOrder(o models.Order) *models.Order {
	o.Items = slices.Clone(o.Items)
	o.AddressID = clonePtr(o.AddressID)
	return &o
}

func copyCoupon(c models.Coupon) *models.Coupon {
	c.ProductIDs = slices.Clone(c.ProductIDs)
	c.MaxDiscount = clonePtr(c.MaxDiscount)
	c.MinOrder = clonePtr(c.MinOrder)
	return &c
}

var errNegativeStock = errors.New("memstore: stock check constraint violated")
