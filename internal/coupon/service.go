package coupon

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

const (
	filterCapacity = 10000
	filterFPRate   = 0.001
)

// Service applies coupons by code and manages coupon records. A bloom filter
// of known codes rejects unknown codes without a database round trip once it
// has been loaded.
type Service struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time

	mu     sync.RWMutex
	known  *bloom.BloomFilter
	loaded bool
}

func NewService(st store.Store, log *zap.Logger) *Service {
	return &Service{
		store: st,
		log:   log.Named("coupon"),
		now:   time.Now,
		known: bloom.NewWithEstimates(filterCapacity, filterFPRate),
	}
}

// Normalize canonicalizes a coupon code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LoadFilter rebuilds the known-code filter from the store.
func (s *Service) LoadFilter(ctx context.Context) error {
	codes, err := s.store.Coupons().Codes(ctx)
	if err != nil {
		return errors.Wrap(err, "load coupon codes")
	}

	n := uint(len(codes))
	if n < filterCapacity {
		n = filterCapacity
	}
	filter := bloom.NewWithEstimates(n, filterFPRate)
	for _, code := range codes {
		filter.AddString(code)
	}

	s.mu.Lock()
	s.known = filter
	s.loaded = true
	s.mu.Unlock()

	s.log.Info("coupon filter loaded", zap.Int("codes", len(codes)))
	return nil
}

func (s *Service) remember(code string) {
	s.mu.Lock()
	s.known.AddString(code)
	s.mu.Unlock()
}

func (s *Service) mayExist(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loaded || s.known.TestString(code)
}

func (s *Service) byCode(ctx context.Context, code string) (*models.Coupon, error) {
	code = Normalize(code)
	if code == "" {
		return nil, apperr.InvalidInput("coupon code is required")
	}
	if !s.mayExist(code) {
		return nil, apperr.InvalidOrExpired("invalid coupon code")
	}
	c, err := s.store.Coupons().ByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.InvalidOrExpired("invalid coupon code")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load coupon")
	}
	return c, nil
}

// Apply applies the coupon named by code to subtotal.
func (s *Service) Apply(ctx context.Context, code string, subtotal decimal.Decimal) (Breakdown, error) {
	c, err := s.byCode(ctx, code)
	if err != nil {
		return Breakdown{}, err
	}
	return Apply(c, subtotal, s.now())
}

// ApplyToCart applies the coupon to the selected items of the caller's cart
// that it covers.
func (s *Service) ApplyToCart(ctx context.Context, caller models.Caller, code string) (Breakdown, error) {
	c, err := s.byCode(ctx, code)
	if err != nil {
		return Breakdown{}, err
	}

	cart, err := s.store.Carts().ByUser(ctx, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Breakdown{}, apperr.InvalidOrExpired("cart is empty")
	}
	if err != nil {
		return Breakdown{}, apperr.Internal(err, "load cart")
	}

	subtotal := decimal.Zero
	covered := 0
	for _, item := range cart.Items {
		if !item.Selected || !c.AppliesTo(item.ProductID.String()) {
			continue
		}
		p, err := s.store.Products().ByID(ctx, item.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return Breakdown{}, apperr.Internal(err, "load product")
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		covered++
	}
	if covered == 0 {
		return Breakdown{}, apperr.InvalidOrExpired("coupon does not apply to any item in the cart")
	}
	return Apply(c, subtotal, s.now())
}

// Input is the admin payload for creating or replacing a coupon.
type Input struct {
	Code        string            `json:"code"`
	Type        models.CouponType `json:"type"`
	Value       decimal.Decimal   `json:"value"`
	MaxDiscount *decimal.Decimal  `json:"max_discount"`
	MinOrder    *decimal.Decimal  `json:"min_order"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Active      *bool             `json:"active"`
	ProductIDs  []string          `json:"product_ids"`
}

func (in Input) apply(c *models.Coupon) error {
	c.Code = Normalize(in.Code)
	if c.Code == "" {
		return apperr.InvalidInput("code is required")
	}
	if in.Type != models.CouponFlat && in.Type != models.CouponPercentage {
		return apperr.InvalidInput("type must be FLAT or PERCENTAGE")
	}
	if !in.Value.IsPositive() {
		return apperr.InvalidInput("value must be positive")
	}
	if in.Type == models.CouponPercentage && in.Value.GreaterThan(hundred) {
		return apperr.InvalidInput("percentage must not exceed 100")
	}
	if in.MaxDiscount != nil && in.MaxDiscount.IsNegative() {
		return apperr.InvalidInput("max_discount must not be negative")
	}
	if in.MinOrder != nil && in.MinOrder.IsNegative() {
		return apperr.InvalidInput("min_order must not be negative")
	}
	if in.ExpiresAt.IsZero() {
		return apperr.InvalidInput("expires_at is required")
	}
	ids := make(pq.StringArray, 0, len(in.ProductIDs))
	for _, raw := range in.ProductIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.InvalidInput("invalid product id %q", raw)
		}
		ids = append(ids, id.String())
	}

	c.Type = in.Type
	c.Value = in.Value
	c.MaxDiscount = in.MaxDiscount
	c.MinOrder = in.MinOrder
	c.ExpiresAt = in.ExpiresAt
	c.ProductIDs = ids
	if in.Active != nil {
		c.Active = *in.Active
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Coupon, error) {
	c := &models.Coupon{Active: true}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if err := s.store.Coupons().Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.AlreadyExists("coupon %s already exists", c.Code)
		}
		return nil, apperr.Internal(err, "create coupon")
	}
	s.remember(c.Code)
	return c, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*models.Coupon, error) {
	c, err := s.store.Coupons().ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("coupon not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load coupon")
	}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if err := s.store.Coupons().Save(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.AlreadyExists("coupon %s already exists", c.Code)
		}
		return nil, apperr.Internal(err, "save coupon")
	}
	s.remember(c.Code)
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.Coupons().Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("coupon not found")
	}
	if err != nil {
		return apperr.Internal(err, "delete coupon")
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.store.Coupons().List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list coupons")
	}
	return coupons, nil
}

// Get returns the coupon for code.
func (s *Service) Get(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := s.byCode(ctx, code)
	if apperr.KindOf(err) == apperr.KindInvalidOrExpired {
		return nil, apperr.NotFound("coupon not found")
	}
	return c, err
}
