package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/reviews"
)

// ReviewHandler serves product reviews.
type ReviewHandler struct {
	reviews *reviews.Service
}

func NewReviewHandler(reviews *reviews.Service) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	var req reviews.Input
	if err := parseBody(c, &req); err != nil {
		return err
	}
	r, err := h.reviews.Create(c.UserContext(), cl, req)
	if err != nil {
		return err
	}
	return created(c, r)
}

// ProductReviews lists a product's reviews with their rating summary.
func (h *ReviewHandler) ProductReviews(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.reviews.ForProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	stats, err := h.reviews.Stats(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": list, "stats": stats})
}

func (h *ReviewHandler) MyReviews(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	list, err := h.reviews.ForUser(c.UserContext(), cl)
	if err != nil {
		return err
	}
	return respond(c, list)
}

func (h *ReviewHandler) UpdateReview(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req reviews.Input
	if err := parseBody(c, &req); err != nil {
		return err
	}
	r, err := h.reviews.Update(c.UserContext(), cl, id, req)
	if err != nil {
		return err
	}
	return respond(c, r)
}

func (h *ReviewHandler) DeleteReview(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.reviews.Delete(c.UserContext(), cl, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "review deleted"})
}

func (h *ReviewHandler) FlaggedReviews(c *fiber.Ctx) error {
	list, err := h.reviews.Flagged(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, list)
}
