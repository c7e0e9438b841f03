package invoice

import (
	"html/template"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/models"
)

// Document is everything printed on one invoice.
type Document struct {
	Order    *models.Order
	Phone    string
	Address  *models.Address
	IssuedAt time.Time
}

// Renderer writes an invoice document.
type Renderer interface {
	ContentType() string
	Extension() string
	Render(w io.Writer, doc *Document) error
}

const invoiceHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{.Order.ID}}</title></head>
<body>
<h1>Invoice</h1>
<p>Order: {{.Order.ID}}<br>
Placed: {{date .Order.CreatedAt}}<br>
Issued: {{date .IssuedAt}}<br>
Payment: {{.Order.PaymentMode}} ({{.Order.PaymentStatus}})<br>
Status: {{.Order.Status}}</p>
<p>Customer: {{.Phone}}{{with .Address}}<br>
{{.Line1}}, {{.City}} {{.PostalCode}}{{end}}</p>
<table>
<tr><th>Product</th><th>Qty</th><th>Unit price</th><th>Total</th></tr>
{{range .Order.Items}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{money .UnitPrice}}</td><td>{{money .LineTotal}}</td></tr>
{{end}}</table>
<p>Total: {{money .Order.TotalAmount}}</p>
{{if .Order.RefundedAmount.IsPositive}}<p>Refunded: {{money .Order.RefundedAmount}}</p>
{{end}}</body>
</html>
`

// HTMLRenderer renders invoices with html/template.
type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"date":  func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
	}
	return &HTMLRenderer{tmpl: template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceHTML))}
}

func (r *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

func (r *HTMLRenderer) Extension() string { return ".html" }

func (r *HTMLRenderer) Render(w io.Writer, doc *Document) error {
	return r.tmpl.Execute(w, doc)
}
