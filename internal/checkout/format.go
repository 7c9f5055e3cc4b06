package checkout

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupiahPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount the way Indonesian shoppers read prices:
// "Rp25.000,00".
func FormatRupiah(amount decimal.Decimal) string {
	value, _ := amount.Round(2).Float64()
	return "Rp" + rupiahPrinter.Sprintf("%.2f", value)
}
