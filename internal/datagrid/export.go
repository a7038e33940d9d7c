package datagrid

import (
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"phone8/internal/models"
	"phone8/internal/money"
)

// Format is an export button of the table.
type Format string

const (
	FormatCopy  Format = "copy"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
	FormatPrint Format = "print"
)

// Formats lists the export buttons in display order.
var Formats = []Format{FormatCopy, FormatExcel, FormatPDF, FormatPrint}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType is the MIME type of an exported file.
func (f Format) ContentType() string {
	switch f {
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatPrint:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Filename is the download name of an exported file, empty for formats
// shown inline.
func (f Format) Filename() string {
	switch f {
	case FormatExcel:
		return "phone8-products.xlsx"
	case FormatPDF:
		return "phone8-products.pdf"
	default:
		return ""
	}
}

// Title is the heading written into exported documents.
const Title = "Phone8 - Danh sách điện thoại"

// Columns are the exported column headers.
var Columns = []string{"Tên", "Danh mục", "Hãng", "Giá", "Tồn kho"}

// Record is the exported text of one product, aligned with Columns.
func Record(p models.Product) []string {
	return []string{p.Name, p.Category, p.Brand, money.Format(p.Price), strconv.Itoa(p.Stock)}
}

// Export writes the rows matching query in the given format. Printing is
// rendered by the web layer and is not handled here.
func (v *View) Export(w io.Writer, format Format, query string) error {
	rows := v.Search(query)
	switch format {
	case FormatCopy:
		return WriteCopy(w, rows)
	case FormatExcel:
		return WriteExcel(w, rows)
	case FormatPDF:
		return WritePDF(w, rows)
	default:
		return fmt.Errorf("export format %q is not a file format", format)
	}
}

// WriteCopy writes rows as tab-separated text, the clipboard layout.
func WriteCopy(w io.Writer, rows []models.Product) error {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(Columns, "\t"))
	b.WriteString("\n")
	for _, p := range rows {
		b.WriteString(strings.Join(Record(p), "\t"))
		b.WriteString("\n")
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write copy export: %w", err)
	}
	return nil
}

// WriteExcel writes rows as an .xlsx workbook. Prices and stock are stored
// as numbers so they stay sortable in the spreadsheet.
func WriteExcel(w io.Writer, rows []models.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	header[3] = "Giá (" + money.Code() + ")"
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write excel header: %w", err)
	}

	for i, p := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address excel row %d: %w", i+2, err)
		}
		row := []interface{}{p.Name, p.Category, p.Brand, p.Price.InexactFloat64(), p.Stock}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write excel row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write excel export: %w", err)
	}
	return nil
}

var pdfWidths = []float64{90, 50, 45, 55, 30}

// pdfFamily is a UTF-8 font covering Vietnamese and the dong sign.
const pdfFamily = "DejaVu"

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	pdfRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	pdfBold []byte
)

// WritePDF writes rows as a landscape A4 table.
func WritePDF(w io.Writer, rows []models.Product) error {
	return writePDF(w, rows, true)
}

func writePDF(w io.Writer, rows []models.Product, compress bool) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.AddUTF8FontFromBytes(pdfFamily, "", pdfRegular)
	pdf.AddUTF8FontFromBytes(pdfFamily, "B", pdfBold)
	pdf.SetTitle(Title, true)
	pdf.AddPage()

	pdf.SetFont(pdfFamily, "B", 14)
	pdf.CellFormat(0, 10, Title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont(pdfFamily, "B", 10)
	pdf.SetFillColor(229, 231, 235)
	for i, c := range Columns {
		pdf.CellFormat(pdfWidths[i], 8, c, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(pdfFamily, "", 10)
	for _, p := range rows {
		for i, value := range Record(p) {
			align := "L"
			if i >= 3 {
				align = "R"
			}
			pdf.CellFormat(pdfWidths[i], 7, value, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf export: %w", err)
	}
	return nil
}
