package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BaseModel contains common fields for all entities
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the caller did not set one
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// QuotationStatus represents the workflow state of a quotation
type QuotationStatus string

const (
	QuotationStatusDraft        QuotationStatus = "draft"
	QuotationStatusCreated      QuotationStatus = "created"
	QuotationStatusUploaded     QuotationStatus = "uploaded"
	QuotationStatusSent         QuotationStatus = "sent"
	QuotationStatusAccepted     QuotationStatus = "accepted"
	QuotationStatusRejected     QuotationStatus = "rejected"
	QuotationStatusOrderCreated QuotationStatus = "order_created"
)

// IsValid checks if the status is a known value
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationStatusDraft, QuotationStatusCreated, QuotationStatusUploaded, QuotationStatusSent,
		QuotationStatusAccepted, QuotationStatusRejected, QuotationStatusOrderCreated:
		return true
	}
	return false
}

// InquiryRef is the reference a quotation holds to its inquiry.
// Older records store the inquiry number, newer ones the inquiry ID.
type InquiryRef string

// ID reports whether the reference is an inquiry identifier and returns it
func (r InquiryRef) ID() (uuid.UUID, bool) {
	id, err := uuid.Parse(string(r))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Number returns the reference as a human-readable inquiry number
func (r InquiryRef) Number() string {
	return string(r)
}

// InquiryPart is one requested part on an inquiry
type InquiryPart struct {
	FileName  string `json:"fileName,omitempty"`
	Material  string `json:"material"`
	Thickness string `json:"thickness"`
	Quantity  int    `json:"quantity"`
	Remarks   string `json:"remarks,omitempty"`
}

// Inquiry is the customer request a quotation answers
type Inquiry struct {
	BaseModel
	InquiryNumber string `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerName  string `gorm:"type:varchar(200)"`
	CustomerEmail string `gorm:"type:varchar(255)"`
	Parts         datatypes.JSONSlice[InquiryPart]
}

// TableName returns the table name for Inquiry
func (Inquiry) TableName() string {
	return "inquiries"
}

// Quotation is one priced response to an inquiry.
// PDFFilename points at the generated artifact and may be nil or dangling.
type Quotation struct {
	BaseModel
	QuotationNumber string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	InquiryRef      InquiryRef      `gorm:"type:varchar(100);not null;index"`
	Items           []QuotationItem `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE"`
	TotalAmount     float64         `gorm:"type:decimal(15,2);not null;default:0"`
	ValidUntil      *time.Time
	Terms           string          `gorm:"type:text"`
	PDFFilename     *string         `gorm:"type:varchar(255);column:pdf_filename;index"`
	Status          QuotationStatus `gorm:"type:varchar(50);not null;default:'draft';index"`
}

// TableName returns the table name for Quotation
func (Quotation) TableName() string {
	return "quotations"
}

// Pointer returns the stored artifact filename, or "" when unset
func (q *Quotation) Pointer() string {
	if q.PDFFilename == nil {
		return ""
	}
	return *q.PDFFilename
}

// QuotationItem is a priced line on a quotation
type QuotationItem struct {
	BaseModel
	QuotationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Position    int       `gorm:"not null;default:0"`
	PartRef     string    `gorm:"type:varchar(200)"`
	Material    string    `gorm:"type:varchar(100)"`
	Thickness   string    `gorm:"type:varchar(50)"`
	Quantity    int       `gorm:"not null;default:0"`
	UnitPrice   float64   `gorm:"type:decimal(15,2);not null;default:0"`
	TotalPrice  float64   `gorm:"type:decimal(15,2);not null;default:0"`
	Remark      string    `gorm:"type:text"`
}

// TableName returns the table name for QuotationItem
func (QuotationItem) TableName() string {
	return "quotation_items"
}
