// Package datagrid is the searchable, paginated and exportable product table
// shown on the storefront. It only reads the product list it is given and
// never feeds anything back into session state.
package datagrid

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"phone8/internal/models"
)

// DefaultPageSize is the fixed number of rows per page.
const DefaultPageSize = 8

// Grid renders a product list and returns the function that tears the
// rendered instance down again.
type Grid interface {
	Render(products []models.Product) (teardown func())
}

// Table is the Grid used by the storefront. It keeps at most one live View.
type Table struct {
	pageSize int
	logger   *zap.Logger

	mu      sync.RWMutex
	current *View
}

// NewTable creates a Table with a fixed page size. There is no page size
// selector; a non-positive size falls back to DefaultPageSize.
func NewTable(pageSize int, logger *zap.Logger) *Table {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Table{pageSize: pageSize, logger: logger}
}

// Render replaces any live View with a new one over products.
func (t *Table) Render(products []models.Product) func() {
	rows := make([]models.Product, len(products))
	copy(rows, products)
	view := &View{rows: rows, pageSize: t.pageSize}

	t.mu.Lock()
	if t.current != nil {
		t.logger.Debug("destroying previous grid instance", zap.Int("rows", len(t.current.rows)))
	}
	t.current = view
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.current == view {
			t.current = nil
		}
	}
}

// Current returns the live View or nil when nothing is rendered.
func (t *Table) Current() *View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// View is one rendered instance of the table. It is immutable.
type View struct {
	rows     []models.Product
	pageSize int
}

// Page is one page of search results.
type Page struct {
	Query    string
	Rows     []models.Product
	Number   int
	Count    int
	Filtered int
	Total    int
	First    int
	Last     int
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Number < p.Count }

// Prev is the previous page number.
func (p Page) Prev() int { return p.Number - 1 }

// Next is the next page number.
func (p Page) Next() int { return p.Number + 1 }

// Len is the number of rows in the table before searching.
func (v *View) Len() int {
	return len(v.rows)
}

// Search returns the rows matching query, in table order. Every
// whitespace-separated term must appear, case-insensitively, in one of the
// displayed columns.
func (v *View) Search(query string) []models.Product {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		out := make([]models.Product, len(v.rows))
		copy(out, v.rows)
		return out
	}

	var out []models.Product
	for _, p := range v.rows {
		haystack := strings.ToLower(strings.Join(Record(p), " "))
		matched := true
		for _, term := range terms {
			if !strings.Contains(haystack, term) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, p)
		}
	}
	return out
}

// Page returns page number n (1-based) of the rows matching query. Out of
// range page numbers are clamped.
func (v *View) Page(query string, n int) Page {
	matches := v.Search(query)
	count := (len(matches) + v.pageSize - 1) / v.pageSize
	if count == 0 {
		count = 1
	}
	if n < 1 {
		n = 1
	}
	if n > count {
		n = count
	}

	start := (n - 1) * v.pageSize
	end := start + v.pageSize
	if end > len(matches) {
		end = len(matches)
	}

	page := Page{
		Query:    query,
		Rows:     matches[start:end],
		Number:   n,
		Count:    count,
		Filtered: len(matches),
		Total:    len(v.rows),
	}
	if end > start {
		page.First = start + 1
		page.Last = end
	}
	return page
}
