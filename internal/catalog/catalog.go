// Package catalog manages product records. Stock is only set at creation;
// later changes go through the orders package.
package catalog

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/orders"
	"github.com/example/storefront/internal/store"
)

type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(st store.Store, log *zap.Logger) *Service {
	return &Service{store: st, log: log.Named("catalog")}
}

// CreateInput describes a new product.
type CreateInput struct {
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	Images            []string        `json:"images"`
	Stock             int             `json:"stock"`
	LowStockThreshold *int            `json:"low_stock_threshold"`
}

// UpdateInput changes descriptive fields only; nil fields are kept.
type UpdateInput struct {
	Name        *string          `json:"name"`
	Slug        *string          `json:"slug"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Images      []string         `json:"images"`
}

// Slugify lower-cases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func validPrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return apperr.InvalidInput("price must not be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.InvalidInput("name is required")
	}
	if err := validPrice(in.Price); err != nil {
		return nil, err
	}
	if in.Stock < 0 {
		return nil, apperr.InvalidInput("stock must not be negative")
	}
	threshold := models.DefaultLowStockThreshold
	if in.LowStockThreshold != nil {
		if *in.LowStockThreshold < 0 {
			return nil, apperr.InvalidInput("low stock threshold must not be negative")
		}
		threshold = *in.LowStockThreshold
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, apperr.InvalidInput("slug is required")
	}

	p := &models.Product{
		Name:              name,
		Slug:              slug,
		Description:       in.Description,
		Category:          strings.TrimSpace(in.Category),
		Price:             in.Price.Round(2),
		Images:            pq.StringArray(in.Images),
		LowStockThreshold: threshold,
		Status:            models.DeriveAvailability(0),
	}

	err := s.store.Atomic(ctx, func(tx store.Store) error {
		if err := tx.Products().Create(ctx, p); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.AlreadyExists("product with slug %q already exists", slug)
			}
			return apperr.Internal(err, "create product")
		}
		if in.Stock == 0 {
			return nil
		}
		return orders.ApplyStock(ctx, tx, p, in.Stock, models.ReasonRestock, "", "initial stock")
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("product created", zap.Stringer("product_id", p.ID), zap.Int("stock", p.Stock))
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.store.Products().ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("product not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load product")
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, f store.ProductFilter) ([]models.Product, int64, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, 0, apperr.InvalidInput("min_price must not exceed max_price")
	}
	switch f.Status {
	case "", models.ProductActive, models.ProductOutOfStock:
	default:
		return nil, 0, apperr.InvalidInput("unknown status %q", f.Status)
	}
	products, total, err := s.store.Products().List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Internal(err, "list products")
	}
	return products, total, nil
}

// Update applies in under the product row lock so it cannot overwrite a
// concurrent stock change.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Product, error) {
	var p *models.Product
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		p, err = tx.Products().LockByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("product not found")
		}
		if err != nil {
			return apperr.Internal(err, "lock product")
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.InvalidInput("name must not be empty")
			}
			p.Name = name
		}
		if in.Slug != nil {
			slug := Slugify(*in.Slug)
			if slug == "" {
				return apperr.InvalidInput("slug must not be empty")
			}
			p.Slug = slug
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if in.Category != nil {
			p.Category = strings.TrimSpace(*in.Category)
		}
		if in.Price != nil {
			if err := validPrice(*in.Price); err != nil {
				return err
			}
			p.Price = in.Price.Round(2)
		}
		if in.Images != nil {
			p.Images = pq.StringArray(in.Images)
		}

		if err := tx.Products().Save(ctx, p); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.AlreadyExists("product with slug %q already exists", p.Slug)
			}
			return apperr.Internal(err, "save product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes the product. Orders keep their frozen line data.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.Products().Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("product not found")
	}
	if err != nil {
		return apperr.Internal(err, "delete product")
	}
	s.log.Info("product deleted", zap.Stringer("product_id", id))
	return nil
}

const (
	recommendLimit     = 10
	recommendMinRating = 4
)

// Recommend returns products from the categories the caller rated at least
// four stars, or the best-rated products when that yields nothing.
func (s *Service) Recommend(ctx context.Context, caller models.Caller) ([]models.Product, error) {
	reviews, err := s.store.Reviews().ByUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperr.Internal(err, "load reviews")
	}

	var categories []string
	seen := map[string]bool{}
	for _, rv := range reviews {
		if rv.Rating < recommendMinRating {
			continue
		}
		p, err := s.store.Products().ByID(ctx, rv.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperr.Internal(err, "load product")
		}
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, p.Category)
	}

	if len(categories) > 0 {
		products, err := s.store.Products().InCategories(ctx, categories, recommendLimit)
		if err != nil {
			return nil, apperr.Internal(err, "list products")
		}
		if len(products) > 0 {
			return products, nil
		}
	}

	products, err := s.store.Products().TopRated(ctx, recommendLimit)
	if err != nil {
		return nil, apperr.Internal(err, "list products")
	}
	return products, nil
}
