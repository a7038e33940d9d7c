// Package cart implements the visitor's shopping cart as an immutable
// snapshot. Every operation returns a new Cart and leaves the receiver
// untouched, so a snapshot handed to a subscriber never changes under it.
package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"phone8/internal/models"
)

var one = decimal.NewFromInt(1)

// Cart is an ordered list of entries, at most one per product id, in the
// order the products were first added. The zero value is an empty cart.
type Cart struct {
	entries []models.CartEntry
}

// Add increments the quantity of p if it is already in the cart and
// appends it with quantity 1 otherwise.
func (c Cart) Add(p models.Product) Cart {
	next := c.clone(1)
	for i := range next {
		if next[i].ID == p.ID {
			next[i].Quantity = next[i].Quantity.Add(one)
			return Cart{entries: next}
		}
	}
	return Cart{entries: append(next, models.CartEntry{Product: p, Quantity: one})}
}

// SetQuantity sets the quantity of the entry with the given id from raw
// user input. Input that is not a number, or is zero or negative, removes
// the entry instead. Fractional quantities are kept as entered.
func (c Cart) SetQuantity(id models.ProductID, raw string) Cart {
	qty, ok := ParseQuantity(raw)
	if !ok {
		return c.Remove(id)
	}
	next := c.clone(0)
	for i := range next {
		if next[i].ID == id {
			next[i].Quantity = qty
		}
	}
	return Cart{entries: next}
}

// Remove drops the entry with the given id. Unknown ids are ignored.
func (c Cart) Remove(id models.ProductID) Cart {
	next := make([]models.CartEntry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.ID != id {
			next = append(next, e)
		}
	}
	return Cart{entries: next}
}

// Total is the sum of price × quantity over all entries.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.entries {
		total = total.Add(e.Subtotal())
	}
	return total
}

// Entries returns a copy of the entries in cart order.
func (c Cart) Entries() []models.CartEntry {
	return c.clone(0)
}

// Get returns the entry for id, if any.
func (c Cart) Get(id models.ProductID) (models.CartEntry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return models.CartEntry{}, false
}

// Len reports the number of distinct products in the cart.
func (c Cart) Len() int {
	return len(c.entries)
}

// IsEmpty reports whether the cart has no entries.
func (c Cart) IsEmpty() bool {
	return len(c.entries) == 0
}

func (c Cart) clone(extra int) []models.CartEntry {
	next := make([]models.CartEntry, len(c.entries), len(c.entries)+extra)
	copy(next, c.entries)
	return next
}

// ParseQuantity parses a quantity typed by the visitor. It reports false for
// anything that is not a finite number greater than zero.
func ParseQuantity(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	qty, err := decimal.NewFromString(s)
	if err != nil || !qty.IsPositive() {
		return decimal.Zero, false
	}
	return qty, true
}
