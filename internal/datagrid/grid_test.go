package datagrid_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"phone8/internal/datagrid"
	"phone8/internal/models"
)

func phones(n int) []models.Product {
	brands := []string{"Samsung", "Apple", "Xiaomi"}
	out := make([]models.Product, n)
	for i := range out {
		out[i] = models.Product{
			ID:       models.ProductID(fmt.Sprint(i + 1)),
			Name:     fmt.Sprintf("Phone %02d", i+1),
			Brand:    brands[i%len(brands)],
			Category: "Smartphone",
			Price:    decimal.NewFromInt(int64(1000000 * (i + 1))),
			Stock:    i,
		}
	}
	return out
}

func TestTable_RenderReplacesPreviousInstance(t *testing.T) {
	table := datagrid.NewTable(0, zap.NewNop())
	assert.Nil(t, table.Current())

	teardownFirst := table.Render(phones(3))
	first := table.Current()
	require.NotNil(t, first)
	assert.Equal(t, 3, first.Len())

	teardownSecond := table.Render(phones(5))
	second := table.Current()
	assert.NotSame(t, first, second)
	assert.Equal(t, 5, second.Len())

	// A stale teardown must not destroy the newer instance.
	teardownFirst()
	assert.Same(t, second, table.Current())

	teardownSecond()
	assert.Nil(t, table.Current())
}

func TestTable_RenderCopiesInput(t *testing.T) {
	table := datagrid.NewTable(8, zap.NewNop())
	products := phones(2)
	table.Render(products)

	products[0].Name = "changed"

	assert.Equal(t, "Phone 01", table.Current().Page("", 1).Rows[0].Name)
}

func TestView_Page(t *testing.T) {
	table := datagrid.NewTable(datagrid.DefaultPageSize, zap.NewNop())
	table.Render(phones(19))
	view := table.Current()

	tests := []struct {
		name      string
		query     string
		page      int
		wantNum   int
		wantCount int
		wantRows  int
		wantFirst int
		wantLast  int
	}{
		{name: "first page", page: 1, wantNum: 1, wantCount: 3, wantRows: 8, wantFirst: 1, wantLast: 8},
		{name: "last partial page", page: 3, wantNum: 3, wantCount: 3, wantRows: 3, wantFirst: 17, wantLast: 19},
		{name: "page below range clamps", page: -4, wantNum: 1, wantCount: 3, wantRows: 8, wantFirst: 1, wantLast: 8},
		{name: "page above range clamps", page: 99, wantNum: 3, wantCount: 3, wantRows: 3, wantFirst: 17, wantLast: 19},
		{name: "search by brand", query: "apple", page: 1, wantNum: 1, wantCount: 1, wantRows: 6, wantFirst: 1, wantLast: 6},
		{name: "search with two terms", query: "XIAOMI phone 03", page: 1, wantNum: 1, wantCount: 1, wantRows: 1, wantFirst: 1, wantLast: 1},
		{name: "no matches", query: "nokia", page: 1, wantNum: 1, wantCount: 1, wantRows: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := view.Page(tt.query, tt.page)
			assert.Equal(t, tt.wantNum, page.Number)
			assert.Equal(t, tt.wantCount, page.Count)
			assert.Len(t, page.Rows, tt.wantRows)
			assert.Equal(t, tt.wantFirst, page.First)
			assert.Equal(t, tt.wantLast, page.Last)
			assert.Equal(t, 19, page.Total)
		})
	}
}

func TestView_SearchMatchesFormattedPrice(t *testing.T) {
	table := datagrid.NewTable(8, zap.NewNop())
	table.Render(phones(12))

	rows := table.Current().Search("12.000.000")

	require.Len(t, rows, 1)
	assert.Equal(t, models.ProductID("12"), rows[0].ID)
}

func TestPage_Navigation(t *testing.T) {
	page := datagrid.Page{Number: 2, Count: 3}
	assert.True(t, page.HasPrev())
	assert.True(t, page.HasNext())
	assert.Equal(t, 1, page.Prev())
	assert.Equal(t, 3, page.Next())

	last := datagrid.Page{Number: 3, Count: 3}
	assert.False(t, last.HasNext())
}

func TestView_ExportCopy(t *testing.T) {
	table := datagrid.NewTable(8, zap.NewNop())
	table.Render(phones(4))

	var buf bytes.Buffer
	require.NoError(t, table.Current().Export(&buf, datagrid.FormatCopy, "samsung"))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, datagrid.Title, lines[0])
	assert.Equal(t, "Tên\tDanh mục\tHãng\tGiá\tTồn kho", lines[2])
	assert.Equal(t, "Phone 01\tSmartphone\tSamsung\t1.000.000\u00a0₫\t0", lines[3])
	assert.Equal(t, "Phone 04\tSmartphone\tSamsung\t4.000.000\u00a0₫\t3", lines[4])
}

func TestView_ExportExcel(t *testing.T) {
	table := datagrid.NewTable(8, zap.NewNop())
	table.Render(phones(10))

	var buf bytes.Buffer
	require.NoError(t, table.Current().Export(&buf, datagrid.FormatExcel, ""))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 11)
	assert.Equal(t, []string{"Tên", "Danh mục", "Hãng", "Giá (VND)", "Tồn kho"}, rows[0])
	assert.Equal(t, "Phone 10", rows[10][0])
	assert.Equal(t, "10000000", rows[10][3])
}

func TestView_ExportPDF(t *testing.T) {
	table := datagrid.NewTable(8, zap.NewNop())
	table.Render(phones(3))

	var buf bytes.Buffer
	require.NoError(t, table.Current().Export(&buf, datagrid.FormatPDF, ""))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestView_ExportPrintIsNotAFile(t *testing.T) {
	table := datagrid.NewTable(8, zap.NewNop())
	table.Render(phones(1))

	err := table.Current().Export(&bytes.Buffer{}, datagrid.FormatPrint, "")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := datagrid.ParseFormat("excel")
	require.NoError(t, err)
	assert.Equal(t, "phone8-products.xlsx", f.Filename())

	_, err = datagrid.ParseFormat("csv")
	assert.EqualError(t, err, `unknown export format "csv"`)
}
