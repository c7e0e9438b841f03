package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/orders"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/utils"
)

// InventoryHandler exposes admin stock management.
type InventoryHandler struct {
	coordinator *orders.Coordinator
}

func NewInventoryHandler(coordinator *orders.Coordinator) *InventoryHandler {
	return &InventoryHandler{coordinator: coordinator}
}

func (h *InventoryHandler) UpdateStock(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req orders.StockUpdate
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.ProductID = id
	p, err := h.coordinator.UpdateStock(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, p)
}

type bulkStockRequest struct {
	Updates []orders.StockUpdate `json:"updates"`
}

func (h *InventoryHandler) BulkUpdateStock(c *fiber.Ctx) error {
	var req bulkStockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	results, err := h.coordinator.BulkUpdateStock(c.UserContext(), req.Updates)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    results,
		"summary": fiber.Map{"total": len(results), "succeeded": len(results) - failed, "failed": failed},
	})
}

func (h *InventoryHandler) GetInventory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.coordinator.Inventory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, view)
}

func (h *InventoryHandler) History(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	pg := utils.ParsePagination(c)
	f := store.HistoryFilter{Reason: models.StockReason(c.Query("reason")), Page: pg.Window()}
	if f.From, err = queryTime(c, "from"); err != nil {
		return err
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return err
	}
	rows, total, err := h.coordinator.History(c.UserContext(), id, f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rows, "pagination": pg.Meta(total)})
}

func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	threshold, err := queryInt(c, "threshold")
	if err != nil {
		return err
	}
	list, err := h.coordinator.LowStock(c.UserContext(), threshold)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": list, "count": len(list)})
}

type thresholdRequest struct {
	Threshold *int `json:"threshold"`
}

func (h *InventoryHandler) SetThreshold(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req thresholdRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Threshold == nil {
		return apperr.InvalidInput("threshold is required")
	}
	p, err := h.coordinator.SetLowStockThreshold(c.UserContext(), id, *req.Threshold)
	if err != nil {
		return err
	}
	return respond(c, p)
}
