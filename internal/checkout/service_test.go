package checkout

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/agristore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(config.StorefrontConfig{WhatsAppOrderPhone: "+62 851-7334-2484", WhatsAppInquiryPhone: "6281234567890"})
	require.NoError(t, err)
	return svc
}

func TestFormatRupiah(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Rp25.000,00", FormatRupiah(decimal.NewFromInt(25000)))
	require.Equal(t, "Rp0,00", FormatRupiah(decimal.Zero))
	require.Equal(t, "Rp1.250.000,50", FormatRupiah(decimal.RequireFromString("1250000.5")))
}

func TestNewServiceRequiresOrderPhone(t *testing.T) {
	t.Parallel()

	if _, err := NewService(config.StorefrontConfig{}); err == nil {
		t.Fatal("expected error for missing phone")
	}
}

func TestOrderLink(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	items := []models.CartItem{
		{ProductID: "a", Name: "Bibit Tomat", Price: 10000, Quantity: 2},
		{ProductID: "b", Name: "Cangkul", Price: 5000, Quantity: 1},
	}
	link, err := svc.OrderLink(items, decimal.NewFromInt(25000))
	require.NoError(t, err)

	want := "Halo, saya mau pesan:\n- Bibit Tomat (2x)\n- Cangkul (1x)\n\nTotal: Rp25.000,00"
	require.Equal(t, want, link.Message)
	require.Equal(t, "6285173342484", link.Phone)

	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	require.Equal(t, "api.whatsapp.com", parsed.Host)
	require.Equal(t, "/send", parsed.Path)
	require.Equal(t, "6285173342484", parsed.Query().Get("phone"))
	require.Equal(t, want, parsed.Query().Get("text"))
}

func TestOrderLinkEmptyCart(t *testing.T) {
	t.Parallel()

	_, err := newTestService(t).OrderLink(nil, decimal.Zero)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestInquiryLink(t *testing.T) {
	t.Parallel()

	link, err := newTestService(t).InquiryLink(models.Product{ID: "p1", Name: "Pupuk Organik", Price: 8000})
	require.NoError(t, err)
	require.Equal(t, "6281234567890", link.Phone)
	require.Contains(t, link.Message, "*Pupuk Organik*")
	require.Contains(t, link.Message, "Harga: Rp8.000,00")
	require.Contains(t, link.Message, "Apakah stok masih tersedia?")
}

func TestInquiryPhoneFallsBackToOrderPhone(t *testing.T) {
	t.Parallel()

	svc, err := NewService(config.StorefrontConfig{WhatsAppOrderPhone: "6285173342484"})
	require.NoError(t, err)
	link, err := svc.InquiryLink(models.Product{Name: "Cangkul"})
	require.NoError(t, err)
	require.Equal(t, "6285173342484", link.Phone)
}
