// Package invoice lists, renders and bundles order invoices.
package invoice

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

const maxBulk = 500

// DocumentSender forwards a rendered file to the operations channel.
type DocumentSender interface {
	SendDocument(ctx context.Context, name string, body []byte, caption string) error
}

type Service struct {
	store    store.Store
	renderer Renderer
	sender   DocumentSender
	log      *zap.Logger
	now      func() time.Time
}

// NewService builds the invoice service. sender may be nil, which disables
// Deliver.
func NewService(st store.Store, renderer Renderer, sender DocumentSender, log *zap.Logger) *Service {
	return &Service{store: st, renderer: renderer, sender: sender, log: log.Named("invoice"), now: time.Now}
}

// Summary is one row of the caller's invoice list.
type Summary struct {
	OrderID       uuid.UUID            `json:"order_id"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Status        models.OrderStatus   `json:"status"`
	PaymentMode   models.PaymentMode   `json:"payment_mode"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time            `json:"created_at"`
}

func (s *Service) List(ctx context.Context, caller models.Caller) ([]Summary, error) {
	orders, _, err := s.store.Orders().List(ctx, store.OrderFilter{UserID: &caller.UserID})
	if err != nil {
		return nil, apperr.Internal(err, "list orders")
	}
	out := make([]Summary, 0, len(orders))
	for _, o := range orders {
		out = append(out, Summary{
			OrderID:       o.ID,
			TotalAmount:   o.TotalAmount,
			Status:        o.Status,
			PaymentMode:   o.PaymentMode,
			PaymentStatus: o.PaymentStatus,
			CreatedAt:     o.CreatedAt,
		})
	}
	return out, nil
}

// FileName is the download name of an order's invoice.
func (s *Service) FileName(orderID uuid.UUID) string {
	return fmt.Sprintf("invoice-%s%s", orderID, s.renderer.Extension())
}

func (s *Service) ContentType() string {
	return s.renderer.ContentType()
}

func (s *Service) document(ctx context.Context, order *models.Order) (*Document, error) {
	doc := &Document{Order: order, IssuedAt: s.now()}
	if account, err := s.store.Accounts().ByID(ctx, order.UserID); err == nil {
		doc.Phone = account.Phone
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal(err, "load account")
	}
	if order.AddressID != nil {
		if address, err := s.store.Addresses().ByID(ctx, *order.AddressID); err == nil {
			doc.Address = address
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Internal(err, "load address")
		}
	}
	return doc, nil
}

// Render writes the invoice of an order owned by caller, or any order for
// admins.
func (s *Service) Render(ctx context.Context, caller models.Caller, orderID uuid.UUID, w io.Writer) error {
	order, err := s.store.Orders().ByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("order not found")
	}
	if err != nil {
		return apperr.Internal(err, "load order")
	}
	if order.UserID != caller.UserID && !caller.IsAdmin() {
		return apperr.Forbidden("not authorized to access this invoice")
	}

	doc, err := s.document(ctx, order)
	if err != nil {
		return err
	}
	if err := s.renderer.Render(w, doc); err != nil {
		return apperr.Internal(err, "render invoice")
	}
	return nil
}

// Deliver renders the invoice of any order and hands it to the document
// sender.
func (s *Service) Deliver(ctx context.Context, orderID uuid.UUID) error {
	if s.sender == nil {
		return apperr.InvalidState("invoice delivery is not configured")
	}
	order, err := s.store.Orders().ByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("order not found")
	}
	if err != nil {
		return apperr.Internal(err, "load order")
	}
	doc, err := s.document(ctx, order)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, doc); err != nil {
		return apperr.Internal(err, "render invoice")
	}
	caption := fmt.Sprintf("Invoice for order %s", order.ID)
	if doc.Phone != "" {
		caption += " (" + doc.Phone + ")"
	}
	if err := s.sender.SendDocument(ctx, s.FileName(order.ID), buf.Bytes(), caption); err != nil {
		return apperr.Delivery(err, "failed to deliver invoice")
	}
	s.log.Info("invoice delivered", zap.Stringer("order_id", order.ID))
	return nil
}

// Bulk writes a gzip-compressed tar archive with one invoice per known order.
// Unknown ids are listed in missing.txt.
func (s *Service) Bulk(ctx context.Context, ids []uuid.UUID, w io.Writer) error {
	if len(ids) == 0 {
		return apperr.InvalidInput("order_ids must not be empty")
	}
	if len(ids) > maxBulk {
		return apperr.InvalidInput("at most %d invoices per request", maxBulk)
	}

	zw := pgzip.NewWriter(w)
	tw := tar.NewWriter(zw)
	now := s.now()

	var missing []string
	for _, id := range ids {
		order, err := s.store.Orders().ByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			missing = append(missing, id.String())
			continue
		}
		if err != nil {
			return apperr.Internal(err, "load order")
		}
		doc, err := s.document(ctx, order)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := s.renderer.Render(&buf, doc); err != nil {
			return apperr.Internal(err, "render invoice")
		}
		if err := addFile(tw, s.FileName(id), buf.Bytes(), now); err != nil {
			return apperr.Internal(err, "write archive")
		}
	}
	if len(missing) > 0 {
		body := []byte(strings.Join(missing, "\n") + "\n")
		if err := addFile(tw, "missing.txt", body, now); err != nil {
			return apperr.Internal(err, "write archive")
		}
	}

	if err := tw.Close(); err != nil {
		return apperr.Internal(err, "close archive")
	}
	if err := zw.Close(); err != nil {
		return apperr.Internal(err, "close archive")
	}
	s.log.Info("bulk invoices written", zap.Int("requested", len(ids)), zap.Int("missing", len(missing)))
	return nil
}

func addFile(tw *tar.Writer, name string, body []byte, modTime time.Time) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(body)),
		ModTime: modTime,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(body)
	return err
}
