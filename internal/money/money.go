// Package money formats storefront prices. All prices are shown in
// Vietnamese dong using Vietnamese digit grouping.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the only currency the storefront displays.
var Currency = currency.MustParseISO("VND")

// Symbol is the dong sign printed after the amount.
const Symbol = "₫"

var printer = message.NewPrinter(language.Vietnamese)

// Format renders v the way a vi-VN currency formatter does: rounded to whole
// dong, grouped with dots and followed by a non-breaking space and the symbol.
func Format(v decimal.Decimal) string {
	return printer.Sprintf("%d", v.Round(0).IntPart()) + "\u00a0" + Symbol
}

// Code returns the ISO 4217 code of the storefront currency.
func Code() string {
	return Currency.String()
}
