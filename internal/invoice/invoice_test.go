package invoice

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store/memstore"
)

func setup(t *testing.T) (*Service, *models.Order, models.Caller) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()

	account := &models.Account{Phone: "+998901112233", Status: models.AccountVerified, Role: models.RoleUser}
	require.NoError(t, st.Accounts().Create(ctx, account))
	address := &models.Address{UserID: account.ID, Line1: "1 Main St", City: "Tashkent", PostalCode: "100000"}
	require.NoError(t, st.Addresses().Create(ctx, address))

	order := &models.Order{
		UserID:        account.ID,
		AddressID:     &address.ID,
		PaymentMode:   models.PaymentCOD,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentUnpaid,
		TotalAmount:   decimal.RequireFromString("25.00"),
		Items: []models.OrderItem{
			{ProductID: uuid.New(), ProductName: "Shirt <b>", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: uuid.New(), ProductName: "Socks", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
	}
	require.NoError(t, st.Orders().Create(ctx, order))

	return NewService(st, NewHTMLRenderer(), nil, zap.NewNop()), order, models.Caller{UserID: account.ID}
}

func TestRender(t *testing.T) {
	s, order, owner := setup(t)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, s.Render(ctx, owner, order.ID, &buf))
	html := buf.String()
	assert.Contains(t, html, order.ID.String())
	assert.Contains(t, html, "Shirt &lt;b&gt;")
	assert.Contains(t, html, "20.00")
	assert.Contains(t, html, "Total: 25.00")
	assert.Contains(t, html, "1 Main St, Tashkent")
	assert.Contains(t, html, "+998901112233")

	err := s.Render(ctx, models.Caller{UserID: uuid.New()}, order.ID, io.Discard)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.NoError(t, s.Render(ctx, models.Caller{UserID: uuid.New(), Role: models.RoleAdmin}, order.ID, io.Discard))
	assert.ErrorIs(t, s.Render(ctx, owner, uuid.New(), io.Discard), apperr.ErrNotFound)

	list, err := s.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, order.ID, list[0].OrderID)
}

func TestBulk(t *testing.T) {
	s, order, _ := setup(t)
	missing := uuid.New()

	var buf bytes.Buffer
	require.NoError(t, s.Bulk(context.Background(), []uuid.UUID{order.ID, missing}, &buf))

	zr, err := pgzip.NewReader(&buf)
	require.NoError(t, err)
	tr := tar.NewReader(zr)

	files := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = string(body)
	}

	require.Len(t, files, 2)
	assert.Contains(t, files[s.FileName(order.ID)], "Total: 25.00")
	assert.Equal(t, missing.String()+"\n", files["missing.txt"])

	assert.ErrorIs(t, s.Bulk(context.Background(), nil, io.Discard), apperr.ErrInvalidInput)
}

type sentDocument struct {
	name    string
	body    string
	caption string
}

type documentOutbox struct {
	sent []sentDocument
	err  error
}

func (o *documentOutbox) SendDocument(_ context.Context, name string, body []byte, caption string) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, sentDocument{name: name, body: string(body), caption: caption})
	return nil
}

func TestDeliver(t *testing.T) {
	s, order, _ := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Deliver(ctx, order.ID), apperr.ErrInvalidState)

	outbox := &documentOutbox{}
	s.sender = outbox
	require.NoError(t, s.Deliver(ctx, order.ID))
	require.Len(t, outbox.sent, 1)
	doc := outbox.sent[0]
	assert.Equal(t, s.FileName(order.ID), doc.name)
	assert.True(t, strings.HasSuffix(doc.name, ".html"), doc.name)
	assert.Contains(t, doc.body, "Total: 25.00")
	assert.Contains(t, doc.caption, order.ID.String())
	assert.Contains(t, doc.caption, "+998901112233")

	assert.ErrorIs(t, s.Deliver(ctx, uuid.New()), apperr.ErrNotFound)

	outbox.err = errors.New("bot is down")
	assert.ErrorIs(t, s.Deliver(ctx, order.ID), apperr.ErrDelivery)
	assert.Len(t, outbox.sent, 1)
}
