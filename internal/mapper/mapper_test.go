package mapper_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/quotation-api/internal/domain"
	"github.com/straye-as/quotation-api/internal/locator"
	"github.com/straye-as/quotation-api/internal/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToQuotationSummaryDTO(t *testing.T) {
	pointer := "quotation_INQ-1_1700000000000.pdf"
	validUntil := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	q := &domain.Quotation{
		QuotationNumber: "Q-1",
		InquiryRef:      "INQ-1",
		Items:           []domain.QuotationItem{{}, {}},
		TotalAmount:     420.5,
		ValidUntil:      &validUntil,
		PDFFilename:     &pointer,
		Status:          domain.QuotationStatusSent,
	}
	q.ID = uuid.New()
	q.CreatedAt = time.UnixMilli(1700000000000)

	dto := mapper.ToQuotationSummaryDTO(q)

	assert.Equal(t, q.ID, dto.ID)
	assert.Equal(t, "INQ-1", dto.InquiryRef)
	assert.Equal(t, 2, dto.ItemCount)
	assert.Equal(t, "2023-11-14T22:13:20Z", dto.CreatedAt)
	require.NotNil(t, dto.ValidUntil)
	assert.Equal(t, "2024-01-31T00:00:00Z", *dto.ValidUntil)
	assert.Equal(t, &pointer, dto.PDFFilename)
	assert.Equal(t, domain.QuotationStatusSent, dto.Status)
}

func TestToQuotationSummaryDTO_NoValidUntil(t *testing.T) {
	dto := mapper.ToQuotationSummaryDTO(&domain.Quotation{QuotationNumber: "Q-2"})

	assert.Nil(t, dto.ValidUntil)
	assert.Nil(t, dto.PDFFilename)
}

func TestToResolutionDTO(t *testing.T) {
	q := &domain.Quotation{QuotationNumber: "Q-3"}

	dto := mapper.ToResolutionDTO("quotation-1700000000000-7421.pdf", locator.Match{
		Quotation: q,
		Strategy:  locator.StrategyTimestampProximity,
	})

	assert.True(t, dto.Success)
	assert.Equal(t, "timestamp_proximity", dto.Strategy)
	assert.Equal(t, "Q-3", dto.Quotation.QuotationNumber)
}
