package mapper

import (
	"github.com/straye-as/quotation-api/internal/domain"
	"github.com/straye-as/quotation-api/internal/locator"
)

const timeLayout = "2006-01-02T15:04:05Z"

// ToQuotationSummaryDTO converts Quotation to QuotationSummaryDTO
func ToQuotationSummaryDTO(quotation *domain.Quotation) domain.QuotationSummaryDTO {
	dto := domain.QuotationSummaryDTO{
		ID:              quotation.ID,
		QuotationNumber: quotation.QuotationNumber,
		InquiryRef:      string(quotation.InquiryRef),
		PDFFilename:     quotation.PDFFilename,
		Status:          quotation.Status,
		TotalAmount:     quotation.TotalAmount,
		ItemCount:       len(quotation.Items),
		CreatedAt:       quotation.CreatedAt.UTC().Format(timeLayout),
	}

	if quotation.ValidUntil != nil {
		validUntil := quotation.ValidUntil.UTC().Format(timeLayout)
		dto.ValidUntil = &validUntil
	}

	return dto
}

// ToResolutionDTO converts a locator match to ResolutionDTO
func ToResolutionDTO(filename string, match locator.Match) domain.ResolutionDTO {
	return domain.ResolutionDTO{
		Success:   true,
		Filename:  filename,
		Strategy:  string(match.Strategy),
		Quotation: ToQuotationSummaryDTO(match.Quotation),
	}
}
