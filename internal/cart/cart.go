// Package cart manages the per-user shopping cart.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Summary covers the selected items only.
type Summary struct {
	ItemsCount    int             `json:"items_count"`
	ProductsCount int             `json:"products_count"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

type View struct {
	ID      uuid.UUID         `json:"id"`
	Items   []models.CartItem `json:"items"`
	Summary Summary           `json:"summary"`
}

func (s *Service) ensure(ctx context.Context, tx store.Store, userID uuid.UUID) (*models.Cart, error) {
	c, err := tx.Carts().ByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal(err, "load cart")
	}
	c = &models.Cart{UserID: userID}
	if err := tx.Carts().Create(ctx, c); err != nil {
		return nil, apperr.Internal(err, "create cart")
	}
	return c, nil
}

func (s *Service) product(ctx context.Context, tx store.Store, id uuid.UUID) (*models.Product, error) {
	p, err := tx.Products().ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("product %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "load product")
	}
	return p, nil
}

// Get returns the caller's cart with product details, creating an empty cart
// on first access. Items whose product was deleted are dropped from the view.
func (s *Service) Get(ctx context.Context, caller models.Caller) (*View, error) {
	var c *models.Cart
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		c, err = s.ensure(ctx, tx, caller.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	view := &View{ID: c.ID, Items: make([]models.CartItem, 0, len(c.Items)), Summary: Summary{Subtotal: decimal.Zero}}
	for _, item := range c.Items {
		p, err := s.store.Products().ByID(ctx, item.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperr.Internal(err, "load product")
		}
		item.Product = p
		view.Items = append(view.Items, item)
		if item.Selected {
			view.Summary.ItemsCount += item.Quantity
			view.Summary.ProductsCount++
			view.Summary.Subtotal = view.Summary.Subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return view, nil
}

type AddRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// AddItem adds quantity of a product, merging with an existing line. The
// accumulated quantity may not exceed current stock.
func (s *Service) AddItem(ctx context.Context, caller models.Caller, req AddRequest) (*View, error) {
	if req.Quantity <= 0 {
		return nil, apperr.InvalidInput("quantity must be positive")
	}
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		p, err := s.product(ctx, tx, req.ProductID)
		if err != nil {
			return err
		}
		c, err := s.ensure(ctx, tx, caller.UserID)
		if err != nil {
			return err
		}

		item := &models.CartItem{CartID: c.ID, ProductID: p.ID, Selected: true}
		for i := range c.Items {
			if c.Items[i].ProductID == p.ID {
				item = &c.Items[i]
				break
			}
		}
		item.Quantity += req.Quantity
		if item.Quantity > p.Stock {
			return apperr.InsufficientStock("only %d of %q in stock", p.Stock, p.Name)
		}
		if err := tx.Carts().SaveItem(ctx, item); err != nil {
			return apperr.Internal(err, "save cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, caller)
}

type UpdateRequest struct {
	Quantity *int  `json:"quantity"`
	Selected *bool `json:"selected"`
}

func (s *Service) ownedItem(ctx context.Context, tx store.Store, caller models.Caller, itemID uuid.UUID) (*models.CartItem, error) {
	item, c, err := tx.Carts().Item(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("cart item not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load cart item")
	}
	if c.UserID != caller.UserID {
		return nil, apperr.Forbidden("cart item belongs to another account")
	}
	return item, nil
}

// UpdateItem changes quantity or selection. Stock is checked only when the
// quantity grows.
func (s *Service) UpdateItem(ctx context.Context, caller models.Caller, itemID uuid.UUID, req UpdateRequest) (*View, error) {
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		item, err := s.ownedItem(ctx, tx, caller, itemID)
		if err != nil {
			return err
		}
		if req.Quantity != nil {
			if *req.Quantity <= 0 {
				return apperr.InvalidInput("quantity must be positive")
			}
			if *req.Quantity > item.Quantity {
				p, err := s.product(ctx, tx, item.ProductID)
				if err != nil {
					return err
				}
				if *req.Quantity > p.Stock {
					return apperr.InsufficientStock("only %d of %q in stock", p.Stock, p.Name)
				}
			}
			item.Quantity = *req.Quantity
		}
		if req.Selected != nil {
			item.Selected = *req.Selected
		}
		if err := tx.Carts().SaveItem(ctx, item); err != nil {
			return apperr.Internal(err, "save cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, caller)
}

func (s *Service) RemoveItem(ctx context.Context, caller models.Caller, itemID uuid.UUID) (*View, error) {
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		if _, err := s.ownedItem(ctx, tx, caller, itemID); err != nil {
			return err
		}
		if err := tx.Carts().DeleteItem(ctx, itemID); err != nil {
			return apperr.Internal(err, "delete cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, caller)
}

func (s *Service) Clear(ctx context.Context, caller models.Caller) error {
	c, err := s.store.Carts().ByUser(ctx, caller.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Internal(err, "load cart")
	}
	if err := s.store.Carts().Clear(ctx, c.ID); err != nil {
		return apperr.Internal(err, "clear cart")
	}
	return nil
}
