package document

import (
	"fmt"
	"regexp"
	"time"

	"github.com/straye-as/quotation-api/internal/domain"
)

const (
	DefaultMaterial  = "Zintec"
	DefaultThickness = "1.5"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Row is one rendered pricing line
type Row struct {
	Position  int
	PartRef   string
	Material  string
	Thickness string
	Quantity  int
	UnitPrice float64
	LineTotal float64
	Remark    string
}

// Input is the flattened view of a quotation the renderer draws from
type Input struct {
	QuotationNumber string
	InquiryNumber   string
	CustomerName    string
	CustomerEmail   string
	CreatedAt       time.Time
	ValidUntil      *time.Time
	Terms           string
	TotalAmount     float64
	Rows            []Row
}

// Shape flattens a quotation and its inquiry into renderer input.
// Priced items are used when present; otherwise the inquiry's parts are listed at zero price.
// inquiry may be nil.
func Shape(quotation *domain.Quotation, inquiry *domain.Inquiry) Input {
	in := Input{
		QuotationNumber: quotation.QuotationNumber,
		CreatedAt:       quotation.CreatedAt.UTC(),
		ValidUntil:      quotation.ValidUntil,
		Terms:           quotation.Terms,
		TotalAmount:     quotation.TotalAmount,
	}
	if inquiry != nil {
		in.InquiryNumber = inquiry.InquiryNumber
		in.CustomerName = inquiry.CustomerName
		in.CustomerEmail = inquiry.CustomerEmail
	}

	if len(quotation.Items) > 0 {
		in.Rows = make([]Row, 0, len(quotation.Items))
		for i, item := range quotation.Items {
			in.Rows = append(in.Rows, Row{
				Position:  i + 1,
				PartRef:   item.PartRef,
				Material:  orDefault(item.Material, DefaultMaterial),
				Thickness: orDefault(item.Thickness, DefaultThickness),
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				LineTotal: item.TotalPrice,
				Remark:    item.Remark,
			})
		}
		return in
	}

	if inquiry != nil {
		in.Rows = make([]Row, 0, len(inquiry.Parts))
		for i, part := range inquiry.Parts {
			in.Rows = append(in.Rows, Row{
				Position:  i + 1,
				PartRef:   part.FileName,
				Material:  orDefault(part.Material, DefaultMaterial),
				Thickness: orDefault(part.Thickness, DefaultThickness),
				Quantity:  part.Quantity,
				Remark:    part.Remarks,
			})
		}
	}
	return in
}

// CanonicalFilename is the name a rebuilt artifact is stored under:
// quotation_<inquiryNumber>_<createdAtMillis>.pdf, using the quotation number
// when the inquiry number is unknown.
func CanonicalFilename(quotation *domain.Quotation, inquiry *domain.Inquiry) string {
	ref := quotation.QuotationNumber
	if inquiry != nil && inquiry.InquiryNumber != "" {
		ref = inquiry.InquiryNumber
	}
	ref = unsafeNameChars.ReplaceAllString(ref, "-")
	return fmt.Sprintf("quotation_%s_%d.pdf", ref, quotation.CreatedAt.UnixMilli())
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
