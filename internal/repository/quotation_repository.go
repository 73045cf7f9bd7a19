package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/quotation-api/internal/domain"
	"gorm.io/gorm"
)

type QuotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

func (r *QuotationRepository) Create(ctx context.Context, quotation *domain.Quotation) error {
	return r.db.WithContext(ctx).Create(quotation).Error
}

// preloadItems loads line items in their stored order
func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

func (r *QuotationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := preloadItems(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&quotation).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

// FindByPointer returns the quotation whose artifact pointer equals name exactly
func (r *QuotationRepository) FindByPointer(ctx context.Context, name string) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := preloadItems(r.db.WithContext(ctx)).
		Where("pdf_filename = ?", name).
		Order("created_at DESC").
		First(&quotation).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

// FindByPointerLike returns the newest quotation whose pointer contains fragment,
// compared case-insensitively. LIKE wildcards in fragment match literally.
func (r *QuotationRepository) FindByPointerLike(ctx context.Context, fragment string) (*domain.Quotation, error) {
	var quotation domain.Quotation
	pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"
	err := preloadItems(r.db.WithContext(ctx)).
		Where("pdf_filename IS NOT NULL").
		Where("LOWER(pdf_filename) LIKE ? ESCAPE '\\'", pattern).
		Order("created_at DESC").
		First(&quotation).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

// FindLatestByInquiryRefs returns the newest quotation referencing any of refs
func (r *QuotationRepository) FindLatestByInquiryRefs(ctx context.Context, refs ...string) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := preloadItems(r.db.WithContext(ctx)).
		Where("inquiry_ref IN ?", refs).
		Order("created_at DESC").
		First(&quotation).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

// FindLatestCreatedBetween returns the newest quotation created in [from, to]
func (r *QuotationRepository) FindLatestCreatedBetween(ctx context.Context, from, to time.Time) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := preloadItems(r.db.WithContext(ctx)).
		Where("created_at >= ? AND created_at <= ?", from.UTC(), to.UTC()).
		Order("created_at DESC").
		First(&quotation).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

// UpdatePointer sets the artifact pointer and nothing else on the quotation.
// Returns gorm.ErrRecordNotFound when no row matched.
func (r *QuotationRepository) UpdatePointer(ctx context.Context, id uuid.UUID, name string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Quotation{}).
		Where("id = ?", id).
		UpdateColumn("pdf_filename", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListIDs returns one page of quotation IDs, oldest first, with the total count
func (r *QuotationRepository) ListIDs(ctx context.Context, page, pageSize int) ([]uuid.UUID, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&domain.Quotation{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ids []uuid.UUID
	offset := (page - 1) * pageSize
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(pageSize).
		Pluck("id", &ids).Error

	return ids, total, err
}

// escapeLike escapes LIKE metacharacters using backslash
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
