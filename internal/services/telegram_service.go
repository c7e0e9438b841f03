package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/models"
)

const telegramAPI = "https://api.telegram.org"

// TelegramService posts order events to the admin chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	currency    string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService. baseURL may be empty to
// use the public Bot API.
func NewTelegramService(botToken, adminChatID, currency, baseURL string) *TelegramService {
	if baseURL == "" {
		baseURL = telegramAPI
	}
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		baseURL:     strings.TrimRight(baseURL, "/"),
		currency:    currency,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

// SendDocument uploads a file to the admin chat. It implements
// invoice.DocumentSender.
func (s *TelegramService) SendDocument(ctx context.Context, name string, body []byte, caption string) error {
	url := fmt.Sprintf("%s/bot%s/sendDocument", s.baseURL, s.botToken)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	if err := mw.WriteField("chat_id", s.adminChatID); err != nil {
		return err
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("document", name)
	if err != nil {
		return err
	}
	if _, err := part.Write(body); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &form)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func (s *TelegramService) do(req *http.Request) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "telegram send")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// FormatPrice formats an amount with thousand separators and currency.
func FormatPrice(amount decimal.Decimal, currency string) string {
	str := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(str, ".")
	sign := ""
	if strings.HasPrefix(whole, "-") {
		sign, whole = "-", whole[1:]
	}

	var result strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	out := sign + result.String() + "." + frac
	if currency != "" {
		out += " " + currency
	}
	return out
}

func (s *TelegramService) items(order *models.Order) string {
	var list strings.Builder
	for i, item := range order.Items {
		fmt.Fprintf(&list, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.ProductName),
			item.Quantity,
			FormatPrice(item.UnitPrice, s.currency),
			FormatPrice(item.LineTotal(), s.currency),
		)
	}
	return list.String()
}

// SendOrderConfirmation implements orders.Notifier.
func (s *TelegramService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	message := fmt.Sprintf(`<b>🛒 New order</b>
<b>Order:</b> %s
<b>Items:</b>
%s
<b>Total:</b> %s
<b>Payment:</b> %s`,
		order.ID,
		s.items(order),
		FormatPrice(order.TotalAmount, s.currency),
		order.PaymentMode,
	)
	return s.SendMessage(ctx, s.adminChatID, strings.TrimSpace(message))
}

// SendStatusUpdate implements orders.Notifier.
func (s *TelegramService) SendStatusUpdate(ctx context.Context, order *models.Order) error {
	message := fmt.Sprintf("<b>📦 Order %s</b> is now <b>%s</b>", order.ID, order.Status)
	if order.TrackingNumber != "" {
		message += "\n<b>Tracking:</b> " + html.EscapeString(order.TrackingNumber)
	}
	return s.SendMessage(ctx, s.adminChatID, message)
}

// SendRefundConfirmation implements orders.Notifier.
func (s *TelegramService) SendRefundConfirmation(ctx context.Context, order *models.Order, amount decimal.Decimal) error {
	message := fmt.Sprintf(`<b>↩️ Refund issued</b>
<b>Order:</b> %s
<b>Amount:</b> %s
<b>Refunded so far:</b> %s
<b>Payment:</b> %s`,
		order.ID,
		FormatPrice(amount, s.currency),
		FormatPrice(order.RefundedAmount, s.currency),
		order.PaymentStatus,
	)
	return s.SendMessage(ctx, s.adminChatID, message)
}
