package handlers

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

// ProfileHandler manages the caller's delivery addresses.
type ProfileHandler struct {
	addresses store.AddressRepository
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(addresses store.AddressRepository) *ProfileHandler {
	return &ProfileHandler{addresses: addresses}
}

func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	list, err := h.addresses.ListByUser(c.UserContext(), cl.UserID)
	if err != nil {
		return apperr.Internal(err, "list addresses")
	}
	return respond(c, list)
}

type addressRequest struct {
	Label      string `json:"label"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
}

func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	var req addressRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Line1) == "" || strings.TrimSpace(req.City) == "" {
		return apperr.InvalidInput("line1 and city are required")
	}

	address := &models.Address{
		UserID:     cl.UserID,
		Label:      strings.TrimSpace(req.Label),
		Line1:      strings.TrimSpace(req.Line1),
		City:       strings.TrimSpace(req.City),
		PostalCode: strings.TrimSpace(req.PostalCode),
		IsDefault:  req.IsDefault,
	}
	if err := h.addresses.Create(c.UserContext(), address); err != nil {
		return apperr.Internal(err, "create address")
	}
	return created(c, address)
}

func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	address, err := h.addresses.ByID(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && address.UserID != cl.UserID) {
		return apperr.NotFound("address not found")
	}
	if err != nil {
		return apperr.Internal(err, "load address")
	}
	if err := h.addresses.Delete(c.UserContext(), id); err != nil {
		return apperr.Internal(err, "delete address")
	}
	return c.JSON(fiber.Map{"success": true, "message": "address deleted"})
}
