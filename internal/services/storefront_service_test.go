package services_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"phone8/internal/catalog"
	"phone8/internal/datagrid"
	"phone8/internal/models"
	"phone8/internal/services"
	"phone8/internal/storefront"
)

// staticLoader settles the catalog as soon as the session mounts.
type staticLoader struct {
	status catalog.Status
}

func (l staticLoader) Start(ctx context.Context, publish func(catalog.Status)) func() {
	publish(l.status)
	return func() {}
}

func newVisitor(st catalog.Status) *storefront.Visitor {
	table := datagrid.NewTable(2, zap.NewNop())
	session := storefront.NewSession("visitor-1", staticLoader{status: st}, table, zap.NewNop())
	session.Mount(context.Background())
	return &storefront.Visitor{Session: session, Table: table}
}

type StorefrontServiceSuite struct {
	suite.Suite
	service  *services.StorefrontService
	products []models.Product
}

func (s *StorefrontServiceSuite) SetupTest() {
	s.service = services.NewStorefrontService("http://localhost:8000")
	s.products = []models.Product{
		{ID: "1", Name: "iPhone 15", Brand: "Apple", Category: "Flagship", Price: decimal.NewFromInt(22990000), Stock: 12},
		{ID: "2", Name: "Galaxy S24", Brand: "Samsung", Category: "Flagship", Price: decimal.NewFromInt(24990000), Stock: 8},
		{ID: "3", Name: "Redmi Note 13", Brand: "Xiaomi", Category: "Tầm trung", Price: decimal.NewFromInt(4890000), Stock: 30},
	}
}

func (s *StorefrontServiceSuite) loaded() *storefront.Visitor {
	return newVisitor(catalog.Status{Phase: catalog.PhaseLoaded, Products: s.products, Attempts: 1})
}

func (s *StorefrontServiceSuite) TestGetState_Loaded() {
	v := s.loaded()
	v.Session.AddByID("1")
	v.Session.AddByID("1")
	v.Session.AddByID("3")

	st := s.service.GetState(v)

	s.Equal("visitor-1", st.SessionID)
	s.Equal("loaded", st.Phase)
	s.False(st.Loading)
	s.Empty(st.Error)
	s.Len(st.Products, 3)
	s.Require().Len(st.Cart, 2)
	s.Equal(models.ProductID("1"), st.Cart[0].ID)
	s.True(st.Cart[0].Quantity.Equal(decimal.NewFromInt(2)))
	s.True(st.Cart[0].Subtotal.Equal(decimal.NewFromInt(45980000)))
	s.True(st.Total.Equal(decimal.NewFromInt(50870000)))
	s.Equal("50.870.000\u00a0₫", st.TotalText)
	s.Equal("VND", st.Currency)
	s.False(st.CartEmpty)
	s.Nil(st.Selected)
}

func (s *StorefrontServiceSuite) TestGetState_Failed() {
	v := newVisitor(catalog.Status{
		Phase:    catalog.PhaseFailed,
		Products: []models.Product{},
		Err:      &catalog.LoadError{StatusCode: 500, Endpoint: "http://localhost:8000/api/products"},
		Attempts: 1,
	})

	st := s.service.GetState(v)

	s.Equal("failed", st.Phase)
	s.Equal("Lỗi API 500", st.Error)
	s.Equal("http://localhost:8000/api/products", st.Endpoint)
	s.Empty(st.Products)
	s.Empty(st.Cart)
	s.True(st.CartEmpty)
	s.Equal("0\u00a0₫", st.TotalText)
}

func (s *StorefrontServiceSuite) TestGetPage_PaginatesRenderedTable() {
	page := s.service.GetPage(s.loaded(), "", 2)

	s.Equal("http://localhost:8000", page.APIURL)
	s.Require().NotNil(page.Grid)
	s.Equal(2, page.Grid.Number)
	s.Equal(2, page.Grid.Count)
	s.Require().Len(page.Grid.Rows, 1)
	s.Equal("Redmi Note 13", page.Grid.Rows[0].Name)
	s.Equal(datagrid.Formats, page.Formats)
	s.Zero(page.RefreshSeconds)
}

func (s *StorefrontServiceSuite) TestGetPage_NoTableWhileLoading() {
	v := newVisitor(catalog.Status{Phase: catalog.PhaseLoading, Loading: true})

	page := s.service.GetPage(v, "", 1)

	s.True(page.Loading)
	s.Nil(page.Grid)
	s.Equal(2, page.RefreshSeconds)
}

func (s *StorefrontServiceSuite) TestSearchRows() {
	rows, err := s.service.SearchRows(s.loaded(), "samsung")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("Galaxy S24", rows[0].Name)

	_, err = s.service.SearchRows(newVisitor(catalog.Status{Phase: catalog.PhaseFailed}), "")
	s.True(errors.Is(err, services.ErrNoCatalog))
}

func (s *StorefrontServiceSuite) TestExport() {
	body, err := s.service.Export(s.loaded(), datagrid.FormatCopy, "flagship")
	s.Require().NoError(err)
	s.True(bytes.Contains(body, []byte("iPhone 15")))
	s.False(bytes.Contains(body, []byte("Redmi Note 13")))

	_, err = s.service.Export(s.loaded(), datagrid.FormatPrint, "")
	s.Error(err)

	_, err = s.service.Export(newVisitor(catalog.Status{Phase: catalog.PhaseLoaded, Products: []models.Product{}}), datagrid.FormatPDF, "")
	s.ErrorIs(err, services.ErrNoCatalog)
}

func TestStorefrontServiceSuite(t *testing.T) {
	suite.Run(t, new(StorefrontServiceSuite))
}
