package models

import "github.com/shopspring/decimal"

// CartEntry is a product selected by the visitor together with its quantity.
type CartEntry struct {
	Product
	Quantity decimal.Decimal `json:"quantity"`
}

// Subtotal returns price × quantity for the entry.
func (e CartEntry) Subtotal() decimal.Decimal {
	return e.Price.Mul(e.Quantity)
}
