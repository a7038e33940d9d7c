package services

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"phone8/internal/datagrid"
	"phone8/internal/models"
	"phone8/internal/money"
	"phone8/internal/storefront"
)

// ErrNoCatalog is returned when there is no rendered product table to
// export from, either because the catalog is still loading, failed, or is
// empty.
var ErrNoCatalog = errors.New("no products to export")

// StorefrontService turns a visitor's session into what the storefront
// pages and the JSON state endpoint show.
type StorefrontService struct {
	apiURL string
}

// NewStorefrontService creates a new StorefrontService. apiURL is the
// backend base URL shown next to load errors.
func NewStorefrontService(apiURL string) *StorefrontService {
	return &StorefrontService{
		apiURL: apiURL,
	}
}

// CartLine is one cart entry as displayed.
type CartLine struct {
	ID       models.ProductID `json:"id"`
	Name     string           `json:"name"`
	Price    decimal.Decimal  `json:"price"`
	Quantity decimal.Decimal  `json:"quantity"`
	Subtotal decimal.Decimal  `json:"subtotal"`
}

// State is the visitor-facing view of a session.
type State struct {
	SessionID string           `json:"session_id"`
	Version   uint64           `json:"version"`
	Phase     string           `json:"phase"`
	Loading   bool             `json:"loading"`
	Error     string           `json:"error,omitempty"`
	Endpoint  string           `json:"endpoint,omitempty"`
	Attempts  int              `json:"attempts"`
	Products  []models.Product `json:"products"`
	Cart      []CartLine       `json:"cart"`
	CartEmpty bool             `json:"cart_empty"`
	Total     decimal.Decimal  `json:"total"`
	TotalText string           `json:"total_text"`
	Currency  string           `json:"currency"`
	Selected  *models.Product  `json:"selected"`
}

// LoadingRefresh is how often a page rendered mid-load reloads itself.
const LoadingRefresh = 2 * time.Second

// Page is everything the index template renders.
type Page struct {
	State
	APIURL  string
	Query   string
	Grid    *datagrid.Page
	Formats []datagrid.Format
	// RefreshSeconds is set while the catalog is loading.
	RefreshSeconds int
}

// GetState builds the State of a visitor's session.
func (s *StorefrontService) GetState(v *storefront.Visitor) State {
	snap := v.Session.Snapshot()

	st := State{
		SessionID: snap.SessionID,
		Version:   snap.Version,
		Phase:     snap.Catalog.Phase.String(),
		Loading:   snap.Catalog.Loading,
		Attempts:  snap.Catalog.Attempts,
		Products:  snap.Products,
		Cart:      make([]CartLine, 0, snap.Cart.Len()),
		CartEmpty: snap.Cart.IsEmpty(),
		Total:     snap.Cart.Total(),
		Currency:  money.Code(),
		Selected:  snap.Selected,
	}
	if snap.Catalog.Err != nil {
		st.Error = snap.Catalog.Err.Message()
		st.Endpoint = snap.Catalog.Err.Endpoint
	}
	for _, e := range snap.Cart.Entries() {
		st.Cart = append(st.Cart, CartLine{
			ID:       e.ID,
			Name:     e.Name,
			Price:    e.Price,
			Quantity: e.Quantity,
			Subtotal: e.Subtotal(),
		})
	}
	st.TotalText = money.Format(st.Total)
	return st
}

// GetPage builds the index page with page n of the products matching
// query. Grid is nil while no table is rendered.
func (s *StorefrontService) GetPage(v *storefront.Visitor, query string, n int) Page {
	page := Page{
		State:   s.GetState(v),
		APIURL:  s.apiURL,
		Query:   query,
		Formats: datagrid.Formats,
	}
	if page.Loading {
		page.RefreshSeconds = int(LoadingRefresh / time.Second)
	}
	if view := v.Table.Current(); view != nil {
		grid := view.Page(query, n)
		page.Grid = &grid
	}
	return page
}

// SearchRows returns every product of the rendered table matching query.
func (s *StorefrontService) SearchRows(v *storefront.Visitor, query string) ([]models.Product, error) {
	view := v.Table.Current()
	if view == nil {
		return nil, ErrNoCatalog
	}
	return view.Search(query), nil
}

// Export renders the products matching query as a downloadable file.
func (s *StorefrontService) Export(v *storefront.Visitor, format datagrid.Format, query string) ([]byte, error) {
	view := v.Table.Current()
	if view == nil {
		return nil, ErrNoCatalog
	}
	var buf bytes.Buffer
	if err := view.Export(&buf, format, query); err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
