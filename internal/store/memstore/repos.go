package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

type accounts struct{ s *Store }

func (r accounts) ByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	defer r.s.lock()()
	a, ok := r.s.data.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyAccount(a), nil
}

func (r accounts) ByPhone(_ context.Context, phone string) (*models.Account, error) {
	defer r.s.lock()()
	for _, a := range r.s.data.accounts {
		if a.Phone == phone {
			return copyAccount(a), nil
		}
	}
	return nil, store.ErrNotFound
}

func (r accounts) LockByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.ByID(ctx, id)
}

func (r accounts) LockByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return r.ByPhone(ctx, phone)
}

func (r accounts) Create(_ context.Context, a *models.Account) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.accounts {
		if existing.Phone == a.Phone {
			return store.ErrDuplicate
		}
	}
	stamp(&a.BaseModel, time.Now())
	r.s.data.accounts[a.ID] = *copyAccount(*a)
	return nil
}

func (r accounts) Save(_ context.Context, a *models.Account) error {
	defer r.s.lock()()
	for id, existing := range r.s.data.accounts {
		if id != a.ID && existing.Phone == a.Phone {
			return store.ErrDuplicate
		}
	}
	stamp(&a.BaseModel, time.Now())
	r.s.data.accounts[a.ID] = *copyAccount(*a)
	return nil
}

func (r accounts) List(_ context.Context, search string, page store.Page) ([]models.Account, int64, error) {
	defer r.s.lock()()
	var out []models.Account
	for _, a := range r.s.data.accounts {
		if search == "" || strings.Contains(a.Phone, search) {
			out = append(out, *copyAccount(a))
		}
	}
	newestFirst(out, func(a models.Account) time.Time { return a.CreatedAt })
	return paginate(out, page), int64(len(out)), nil
}

type addresses struct{ s *Store }

func (r addresses) ByID(_ context.Context, id uuid.UUID) (*models.Address, error) {
	defer r.s.lock()()
	a, ok := r.s.data.addresses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (r addresses) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Address, error) {
	defer r.s.lock()()
	var out []models.Address
	for _, a := range r.s.data.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r addresses) Create(_ context.Context, a *models.Address) error {
	defer r.s.lock()()
	if a.IsDefault {
		for id, existing := range r.s.data.addresses {
			if existing.UserID == a.UserID && existing.IsDefault {
				existing.IsDefault = false
				r.s.data.addresses[id] = existing
			}
		}
	}
	stamp(&a.BaseModel, time.Now())
	r.s.data.addresses[a.ID] = *a
	return nil
}

func (r addresses) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.addresses[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.data.addresses, id)
	return nil
}

type products struct{ s *Store }

func (r products) ByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyProduct(p), nil
}

func (r products) LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return r.ByID(ctx, id)
}

func (r products) List(_ context.Context, f store.ProductFilter) ([]models.Product, int64, error) {
	defer r.s.lock()()
	search := strings.ToLower(f.Search)
	var out []models.Product
	for _, p := range r.s.data.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(decimal.NewFromFloat(*f.MinPrice)) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(decimal.NewFromFloat(*f.MaxPrice)) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, *copyProduct(p))
	}
	newestFirst(out, func(p models.Product) time.Time { return p.CreatedAt })
	return paginate(out, f.Page), int64(len(out)), nil
}

func (r products) LowStock(_ context.Context, threshold *int) ([]models.Product, error) {
	defer r.s.lock()()
	var out []models.Product
	for _, p := range r.s.data.products {
		limit := p.LowStockThreshold
		if threshold != nil {
			limit = *threshold
		}
		if p.Stock <= limit {
			out = append(out, *copyProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r products) InCategories(_ context.Context, categories []string, limit int) ([]models.Product, error) {
	defer r.s.lock()()
	var out []models.Product
	for _, p := range r.s.data.products {
		if slices.Contains(categories, p.Category) {
			out = append(out, *copyProduct(p))
		}
	}
	newestFirst(out, func(p models.Product) time.Time { return p.CreatedAt })
	return paginate(out, store.Page{Limit: limit}), nil
}

func (r products) TopRated(_ context.Context, limit int) ([]models.Product, error) {
	defer r.s.lock()()
	sum := map[uuid.UUID]int{}
	count := map[uuid.UUID]int{}
	for _, rv := range r.s.data.reviews {
		sum[rv.ProductID] += rv.Rating
		count[rv.ProductID]++
	}
	avg := func(id uuid.UUID) float64 {
		if count[id] == 0 {
			return 0
		}
		return float64(sum[id]) / float64(count[id])
	}

	out := make([]models.Product, 0, len(r.s.data.products))
	for _, p := range r.s.data.products {
		out = append(out, *copyProduct(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := avg(out[i].ID), avg(out[j].ID)
		if ai != aj {
			return ai > aj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, store.Page{Limit: limit}), nil
}

func (r products) Create(_ context.Context, p *models.Product) error {
	defer r.s.lock()()
	return r.put(p)
}

func (r products) Save(_ context.Context, p *models.Product) error {
	defer r.s.lock()()
	return r.put(p)
}

func (r products) put(p *models.Product) error {
	if p.Stock < 0 {
		return errNegativeStock
	}
	for id, existing := range r.s.data.products {
		if id != p.ID && p.Slug != "" && existing.Slug == p.Slug {
			return store.ErrDuplicate
		}
	}
	stamp(&p.BaseModel, time.Now())
	r.s.data.products[p.ID] = *copyProduct(*p)
	return nil
}

func (r products) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.data.products, id)
	return nil
}

type inventory struct{ s *Store }

func (r inventory) Append(_ context.Context, h *models.InventoryHistory) error {
	defer r.s.lock()()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	r.s.data.history = append(r.s.data.history, *h)
	return nil
}

func (r inventory) History(_ context.Context, productID uuid.UUID, f store.HistoryFilter) ([]models.InventoryHistory, int64, error) {
	defer r.s.lock()()
	var out []models.InventoryHistory
	for i := len(r.s.data.history) - 1; i >= 0; i-- {
		h := r.s.data.history[i]
		if h.ProductID != productID {
			continue
		}
		if f.Reason != "" && h.Reason != f.Reason {
			continue
		}
		if f.From != nil && h.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && h.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, h)
	}
	return paginate(out, f.Page), int64(len(out)), nil
}

type orders struct{ s *Store }

func (r orders) Create(_ context.Context, o *models.Order) error {
	defer r.s.lock()()
	now := time.Now()
	stamp(&o.BaseModel, now)
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		o.Items[i].Position = i
		stamp(&o.Items[i].BaseModel, now)
	}
	r.s.data.orders[o.ID] = *copyOrder(*o)
	return nil
}

func (r orders) ByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	defer r.s.lock()()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r orders) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.ByID(ctx, id)
}

func (r orders) List(_ context.Context, f store.OrderFilter) ([]models.Order, int64, error) {
	defer r.s.lock()()
	var out []models.Order
	for _, o := range r.s.data.orders {
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	newestFirst(out, func(o models.Order) time.Time { return o.CreatedAt })
	return paginate(out, f.Page), int64(len(out)), nil
}

func (r orders) Save(_ context.Context, o *models.Order) error {
	defer r.s.lock()()
	existing, ok := r.s.data.orders[o.ID]
	if !ok {
		return store.ErrNotFound
	}

	items := copyOrder(existing).Items
	for i := range items {
		for _, changed := range o.Items {
			if changed.ID == items[i].ID {
				items[i].RefundedQuantity = changed.RefundedQuantity
			}
		}
	}

	o.CreatedAt = existing.CreatedAt
	o.UpdatedAt = time.Now()
	saved := copyOrder(*o)
	saved.Items = items
	r.s.data.orders[o.ID] = *saved
	return nil
}

func (r orders) HasDelivered(_ context.Context, userID, productID uuid.UUID) (bool, error) {
	defer r.s.lock()()
	for _, o := range r.s.data.orders {
		if o.UserID != userID || o.Status != models.OrderDelivered {
			continue
		}
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

type coupons struct{ s *Store }

func (r coupons) ByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	defer r.s.lock()()
	c, ok := r.s.data.coupons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyCoupon(c), nil
}

func (r coupons) ByCode(_ context.Context, code string) (*models.Coupon, error) {
	defer r.s.lock()()
	for _, c := range r.s.data.coupons {
		if c.Code == code {
			return copyCoupon(c), nil
		}
	}
	return nil, store.ErrNotFound
}

func (r coupons) List(_ context.Context) ([]models.Coupon, error) {
	defer r.s.lock()()
	var out []models.Coupon
	for _, c := range r.s.data.coupons {
		out = append(out, *copyCoupon(c))
	}
	newestFirst(out, func(c models.Coupon) time.Time { return c.CreatedAt })
	return out, nil
}

func (r coupons) Codes(_ context.Context) ([]string, error) {
	defer r.s.lock()()
	codes := make([]string, 0, len(r.s.data.coupons))
	for _, c := range r.s.data.coupons {
		codes = append(codes, c.Code)
	}
	return codes, nil
}

func (r coupons) Create(_ context.Context, c *models.Coupon) error {
	defer r.s.lock()()
	return r.put(c)
}

func (r coupons) Save(_ context.Context, c *models.Coupon) error {
	defer r.s.lock()()
	return r.put(c)
}

func (r coupons) put(c *models.Coupon) error {
	for id, existing := range r.s.data.coupons {
		if id != c.ID && existing.Code == c.Code {
			return store.ErrDuplicate
		}
	}
	stamp(&c.BaseModel, time.Now())
	r.s.data.coupons[c.ID] = *copyCoupon(*c)
	return nil
}

func (r coupons) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.coupons[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.data.coupons, id)
	return nil
}

type carts struct{ s *Store }

func (r carts) ByUser(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	defer r.s.lock()()
	for _, c := range r.s.data.carts {
		if c.UserID != userID {
			continue
		}
		c.Items = nil
		for _, item := range r.s.data.cartItems {
			if item.CartID == c.ID {
				c.Items = append(c.Items, item)
			}
		}
		return &c, nil
	}
	return nil, store.ErrNotFound
}

func (r carts) Create(_ context.Context, c *models.Cart) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.carts {
		if existing.UserID == c.UserID {
			return store.ErrDuplicate
		}
	}
	stamp(&c.BaseModel, time.Now())
	stored := *c
	stored.Items = nil
	r.s.data.carts[c.ID] = stored
	return nil
}

func (r carts) Item(_ context.Context, itemID uuid.UUID) (*models.CartItem, *models.Cart, error) {
	defer r.s.lock()()
	for _, item := range r.s.data.cartItems {
		if item.ID != itemID {
			continue
		}
		c, ok := r.s.data.carts[item.CartID]
		if !ok {
			return nil, nil, store.ErrNotFound
		}
		return &item, &c, nil
	}
	return nil, nil, store.ErrNotFound
}

func (r carts) SaveItem(_ context.Context, item *models.CartItem) error {
	defer r.s.lock()()
	stamp(&item.BaseModel, time.Now())
	stored := *item
	stored.Product = nil
	for i := range r.s.data.cartItems {
		if r.s.data.cartItems[i].ID == item.ID {
			r.s.data.cartItems[i] = stored
			return nil
		}
	}
	r.s.data.cartItems = append(r.s.data.cartItems, stored)
	return nil
}

func (r carts) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	defer r.s.lock()()
	for i := range r.s.data.cartItems {
		if r.s.data.cartItems[i].ID == itemID {
			r.s.data.cartItems = append(r.s.data.cartItems[:i:i], r.s.data.cartItems[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r carts) Clear(_ context.Context, cartID uuid.UUID) error {
	defer r.s.lock()()
	kept := r.s.data.cartItems[:0:0]
	for _, item := range r.s.data.cartItems {
		if item.CartID != cartID {
			kept = append(kept, item)
		}
	}
	r.s.data.cartItems = kept
	return nil
}

type reviews struct{ s *Store }

func (r reviews) ByID(_ context.Context, id uuid.UUID) (*models.Review, error) {
	defer r.s.lock()()
	rv, ok := r.s.data.reviews[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rv, nil
}

func (r reviews) Create(_ context.Context, rv *models.Review) error {
	defer r.s.lock()()
	stamp(&rv.BaseModel, time.Now())
	r.s.data.reviews[rv.ID] = *rv
	return nil
}

func (r reviews) Save(_ context.Context, rv *models.Review) error {
	defer r.s.lock()()
	stamp(&rv.BaseModel, time.Now())
	r.s.data.reviews[rv.ID] = *rv
	return nil
}

func (r reviews) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.reviews[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.data.reviews, id)
	return nil
}

func (r reviews) ByProduct(_ context.Context, productID uuid.UUID) ([]models.Review, error) {
	return r.filter(func(rv models.Review) bool { return rv.ProductID == productID }), nil
}

func (r reviews) ByUser(_ context.Context, userID uuid.UUID) ([]models.Review, error) {
	return r.filter(func(rv models.Review) bool { return rv.UserID == userID }), nil
}

func (r reviews) Flagged(_ context.Context) ([]models.Review, error) {
	return r.filter(func(rv models.Review) bool { return rv.Flagged }), nil
}

func (r reviews) filter(keep func(models.Review) bool) []models.Review {
	defer r.s.lock()()
	var out []models.Review
	for _, rv := range r.s.data.reviews {
		if keep(rv) {
			out = append(out, rv)
		}
	}
	newestFirst(out, func(rv models.Review) time.Time { return rv.CreatedAt })
	return out
}

func (r reviews) Stats(_ context.Context, productID uuid.UUID) (models.RatingStats, error) {
	defer r.s.lock()()
	var stats models.RatingStats
	sum := 0
	for _, rv := range r.s.data.reviews {
		if rv.ProductID == productID {
			stats.Total++
			sum += rv.Rating
		}
	}
	if stats.Total > 0 {
		stats.Average = float64(sum) / float64(stats.Total)
	}
	return stats, nil
}

func (r reviews) FlagStale(_ context.Context, cutoff time.Time, maxRating int) (int64, error) {
	defer r.s.lock()()
	var n int64
	for id, rv := range r.s.data.reviews {
		if !rv.Flagged && rv.Rating < maxRating && rv.CreatedAt.Before(cutoff) {
			rv.Flagged = true
			r.s.data.reviews[id] = rv
			n++
		}
	}
	return n, nil
}
