package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/quotation-api/internal/domain"
	"gorm.io/gorm"
)

type InquiryRepository struct {
	db *gorm.DB
}

func NewInquiryRepository(db *gorm.DB) *InquiryRepository {
	return &InquiryRepository{db: db}
}

func (r *InquiryRepository) Create(ctx context.Context, inquiry *domain.Inquiry) error {
	return r.db.WithContext(ctx).Create(inquiry).Error
}

func (r *InquiryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error) {
	var inquiry domain.Inquiry
	err := r.db.WithContext(ctx).First(&inquiry, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

// GetByNumber looks an inquiry up by its human-readable number
func (r *InquiryRepository) GetByNumber(ctx context.Context, number string) (*domain.Inquiry, error) {
	var inquiry domain.Inquiry
	err := r.db.WithContext(ctx).First(&inquiry, "inquiry_number = ?", number).Error
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

// GetByRef resolves a quotation's inquiry reference. A reference that parses
// as an identifier is looked up by ID; anything else is an inquiry number.
func (r *InquiryRepository) GetByRef(ctx context.Context, ref domain.InquiryRef) (*domain.Inquiry, error) {
	if id, ok := ref.ID(); ok {
		return r.GetByID(ctx, id)
	}
	return r.GetByNumber(ctx, ref.Number())
}
