package document

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/straye-as/quotation-api/internal/domain"
)

// Result is a rendered artifact and the name it should be stored under
type Result struct {
	Filename string
	Data     []byte
}

// Builder renders quotations to PDF
type Builder struct {
	companyName string
	currency    string
}

func NewBuilder(companyName, currency string) *Builder {
	if currency == "" {
		currency = "NOK"
	}
	return &Builder{
		companyName: companyName,
		currency:    currency,
	}
}

// table columns, widths in mm
var columns = []struct {
	title string
	width float64
	align string
}{
	{"#", 8, "C"},
	{"Part", 50, "L"},
	{"Material", 26, "L"},
	{"Thickness", 20, "R"},
	{"Qty", 14, "R"},
	{"Unit price", 26, "R"},
	{"Total", 26, "R"},
}

// Build renders the quotation. The document's creation date is the quotation's
// creation time, so rebuilding unchanged data yields the same bytes.
func (b *Builder) Build(ctx context.Context, quotation *domain.Quotation, inquiry *domain.Inquiry) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in := Shape(quotation, inquiry)
	data, err := b.render(in)
	if err != nil {
		return nil, err
	}

	return &Result{
		Filename: CanonicalFilename(quotation, inquiry),
		Data:     data,
	}, nil
}

func (b *Builder) render(in Input) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(in.CreatedAt)
	pdf.SetModificationDate(in.CreatedAt)
	pdf.SetTitle(tr("Quotation "+in.QuotationNumber), false)
	pdf.SetAuthor(tr(b.companyName), false)
	pdf.SetCreator(tr(b.companyName), false)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(b.companyName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, tr("Quotation "+in.QuotationNumber), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	b.field(pdf, tr, "Date", in.CreatedAt.Format("2006-01-02"))
	if in.InquiryNumber != "" {
		b.field(pdf, tr, "Inquiry", in.InquiryNumber)
	}
	if in.CustomerName != "" {
		b.field(pdf, tr, "Customer", in.CustomerName)
	}
	if in.CustomerEmail != "" {
		b.field(pdf, tr, "Email", in.CustomerEmail)
	}
	if in.ValidUntil != nil {
		b.field(pdf, tr, "Valid until", in.ValidUntil.UTC().Format("2006-01-02"))
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range in.Rows {
		cells := []string{
			strconv.Itoa(row.Position),
			tr(row.PartRef),
			tr(row.Material),
			tr(row.Thickness),
			strconv.Itoa(row.Quantity),
			b.money(row.UnitPrice),
			b.money(row.LineTotal),
		}
		for i, c := range columns {
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)

		if row.Remark != "" {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.CellFormat(0, 5, tr("  "+row.Remark), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
		}
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(144, 7, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(26, 7, b.money(in.TotalAmount), "T", 1, "R", false, 0, "")

	if in.Terms != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, "Terms", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(in.Terms), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) field(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.CellFormat(30, 6, label+":", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
}

func (b *Builder) money(v float64) string {
	return fmt.Sprintf("%s %.2f", b.currency, v)
}
