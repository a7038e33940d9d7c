package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductID identifies a product. The catalog API may send ids as JSON
// numbers or strings; both decode to the same textual form.
type ProductID string

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (id *ProductID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ProductID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid product id %s: %w", data, err)
	}
	*id = ProductID(s)
	return nil
}

// Product represents a phone in the store catalog.
type Product struct {
	ID          ProductID       `json:"id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url"`
	Screen      string          `json:"screen"`
	CPU         string          `json:"cpu"`
	RAM         string          `json:"ram"`
	Storage     string          `json:"storage"`
	Battery     string          `json:"battery"`
	OS          string          `json:"os"`
	Description string          `json:"description"`
}

// UnmarshalJSON decodes a catalog item leniently: text fields also accept
// numbers and booleans and stock also accepts a numeric string. A null item
// is an error.
func (p *Product) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errors.New("product is null")
	}
	var raw struct {
		ID          ProductID       `json:"id"`
		Name        text            `json:"name"`
		Brand       text            `json:"brand"`
		Category    text            `json:"category"`
		Price       decimal.Decimal `json:"price"`
		Stock       count           `json:"stock"`
		ImageURL    text            `json:"image_url"`
		Screen      text            `json:"screen"`
		CPU         text            `json:"cpu"`
		RAM         text            `json:"ram"`
		Storage     text            `json:"storage"`
		Battery     text            `json:"battery"`
		OS          text            `json:"os"`
		Description text            `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid product: %w", err)
	}
	*p = Product{
		ID:          raw.ID,
		Name:        string(raw.Name),
		Brand:       string(raw.Brand),
		Category:    string(raw.Category),
		Price:       raw.Price,
		Stock:       int(raw.Stock),
		ImageURL:    string(raw.ImageURL),
		Screen:      string(raw.Screen),
		CPU:         string(raw.CPU),
		RAM:         string(raw.RAM),
		Storage:     string(raw.Storage),
		Battery:     string(raw.Battery),
		OS:          string(raw.OS),
		Description: string(raw.Description),
	}
	return nil
}

// text is a display string that may arrive as a JSON number or boolean,
// e.g. "ram": 8.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = text(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*t = text(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("expected text, got %s", data)
}

// count is a whole quantity that may arrive as a JSON number or a numeric
// string. Fractions are truncated.
type count int

func (c *count) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if raw == "" {
		*c = 0
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid count %s: %w", data, err)
	}
	*c = count(d.IntPart())
	return nil
}
