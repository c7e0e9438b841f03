package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/invoice"
)

// InvoiceHandler serves rendered invoices.
type InvoiceHandler struct {
	invoices *invoice.Service
}

func NewInvoiceHandler(invoices *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

func (h *InvoiceHandler) ListInvoices(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	list, err := h.invoices.List(c.UserContext(), cl)
	if err != nil {
		return err
	}
	return respond(c, list)
}

// DownloadInvoice renders the invoice of one order. The document is buffered
// so a rendering failure still produces a JSON error.
func (h *InvoiceHandler) DownloadInvoice(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := h.invoices.Render(c.UserContext(), cl, id, &buf); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, h.invoices.ContentType())
	if c.QueryBool("download") {
		c.Attachment(h.invoices.FileName(id))
	}
	return c.Send(buf.Bytes())
}

// SendInvoice forwards an order's invoice to the operations chat.
func (h *InvoiceHandler) SendInvoice(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.invoices.Deliver(c.UserContext(), id); err != nil {
		return err
	}
	return respond(c, fiber.Map{"order_id": id, "sent": true})
}

type bulkInvoiceRequest struct {
	OrderIDs []string `json:"order_ids"`
}

// BulkInvoices streams a .tar.gz with the requested invoices.
func (h *InvoiceHandler) BulkInvoices(c *fiber.Ctx) error {
	var req bulkInvoiceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(req.OrderIDs))
	for _, raw := range req.OrderIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.InvalidInput("invalid order id %q", raw)
		}
		ids = append(ids, id)
	}

	var buf bytes.Buffer
	if err := h.invoices.Bulk(c.UserContext(), ids, &buf); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/gzip")
	c.Attachment(fmt.Sprintf("invoices-%s.tar.gz", time.Now().UTC().Format("20060102-150405")))
	return c.Send(buf.Bytes())
}
