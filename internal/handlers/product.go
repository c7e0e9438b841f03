package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/utils"
)

// ProductHandler manages product CRUD.
type ProductHandler struct {
	catalog *catalog.Service
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(catalog *catalog.Service) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// ListProducts returns paginated products with optional filters.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	f := store.ProductFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Search:   strings.TrimSpace(c.Query("search")),
		Status:   models.ProductStatus(strings.ToUpper(c.Query("status"))),
		Page:     pg.Window(),
	}
	var err error
	if f.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return err
	}
	if f.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return err
	}

	products, total, err := h.catalog.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": products, "pagination": pg.Meta(total)})
}

// GetProduct loads a product.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.catalog.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, p)
}

// CreateProduct handles product creation.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req catalog.CreateInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := h.catalog.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return created(c, p)
}

// UpdateProduct changes descriptive fields. Stock is managed by the
// inventory endpoints.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req catalog.UpdateInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := h.catalog.Update(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return respond(c, p)
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "product deleted"})
}

// Recommendations suggests products for the caller.
func (h *ProductHandler) Recommendations(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	products, err := h.catalog.Recommend(c.UserContext(), cl)
	if err != nil {
		return err
	}
	return respond(c, products)
}
