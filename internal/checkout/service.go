// Package checkout builds the WhatsApp links that hand an order or a product
// inquiry over to the shop.
package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/agristore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

const whatsAppSendURL = "https://api.whatsapp.com/send"

// Link is a prepared handoff. The client opens URL; nothing is awaited.
type Link struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// Service builds handoff links for the configured shop numbers.
type Service interface {
	OrderLink(items []models.CartItem, total decimal.Decimal) (Link, error)
	InquiryLink(product models.Product) (Link, error)
}

type service struct {
	orderPhone   string
	inquiryPhone string
}

func NewService(cfg config.StorefrontConfig) (Service, error) {
	orderPhone := normalizePhone(cfg.WhatsAppOrderPhone)
	inquiryPhone := normalizePhone(cfg.WhatsAppInquiryPhone)
	if orderPhone == "" {
		return nil, fmt.Errorf("whatsapp order phone required")
	}
	if inquiryPhone == "" {
		inquiryPhone = orderPhone
	}
	return &service{orderPhone: orderPhone, inquiryPhone: inquiryPhone}, nil
}

// OrderLink lists every cart line with its quantity followed by the total.
func (s *service) OrderLink(items []models.CartItem, total decimal.Decimal) (Link, error) {
	if len(items) == 0 {
		return Link{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	var b strings.Builder
	b.WriteString("Halo, saya mau pesan:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s (%dx)\n", item.Name, item.Quantity)
	}
	b.WriteString("\nTotal: ")
	b.WriteString(FormatRupiah(total))
	return newLink(s.orderPhone, b.String()), nil
}

// InquiryLink asks the shop whether a product is still in stock.
func (s *service) InquiryLink(product models.Product) (Link, error) {
	if strings.TrimSpace(product.Name) == "" {
		return Link{}, pkgerrors.New(pkgerrors.CodeValidation, "product required")
	}
	msg := "Halo Admin AgriStore 👋,\n" +
		"Saya tertarik membeli produk:\n\n" +
		"🌾 *" + product.Name + "*\n" +
		"💰 Harga: " + FormatRupiah(decimal.NewFromFloat(product.Price)) + "\n\n" +
		"Apakah stok masih tersedia?"
	return newLink(s.inquiryPhone, msg), nil
}

func newLink(phone, msg string) Link {
	query := url.Values{}
	query.Set("phone", phone)
	query.Set("text", msg)
	return Link{
		Phone:   phone,
		Message: msg,
		URL:     whatsAppSendURL + "?" + query.Encode(),
	}
}

// normalizePhone keeps digits only; WhatsApp expects the international form
// without "+".
func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
