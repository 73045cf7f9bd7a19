package domain

import "github.com/google/uuid"

// DTOs for API responses

// QuotationSummaryDTO is the subset of a quotation exposed by the artifact endpoints
type QuotationSummaryDTO struct {
	ID              uuid.UUID       `json:"id"`
	QuotationNumber string          `json:"quotationNumber"`
	InquiryRef      string          `json:"inquiryRef"`
	PDFFilename     *string         `json:"pdfFilename,omitempty"`
	Status          QuotationStatus `json:"status"`
	TotalAmount     float64         `json:"totalAmount"`
	ItemCount       int             `json:"itemCount"`
	CreatedAt       string          `json:"createdAt"` // ISO 8601
	ValidUntil      *string         `json:"validUntil,omitempty"`
}

// ResolutionDTO reports how a filename resolved to a quotation
type ResolutionDTO struct {
	Success   bool                `json:"success"`
	Filename  string              `json:"filename"`
	Strategy  string              `json:"strategy"`
	Quotation QuotationSummaryDTO `json:"quotation"`
}

// RegenerateResponse is returned after a forced artifact rebuild
type RegenerateResponse struct {
	Success     bool      `json:"success"`
	QuotationID uuid.UUID `json:"quotationId"`
	Filename    string    `json:"filename"`
	Regenerated bool      `json:"regenerated"`
	Size        int       `json:"size"`
}

// ArtifactRequest carries the path and query input of the artifact endpoint
type ArtifactRequest struct {
	Filename string `validate:"required,max=255"`
	Download bool
}
