package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/quotation-api/internal/database"
	"github.com/straye-as/quotation-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the schema migrated.
// The pool is pinned to a single connection so every query sees the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// At returns a whole-second UTC time for a Unix millisecond timestamp
func At(millis int64) time.Time {
	return time.UnixMilli(millis).UTC().Truncate(time.Second)
}

// CreateTestInquiry inserts an inquiry with the given number and parts
func CreateTestInquiry(t *testing.T, db *gorm.DB, number string, parts ...domain.InquiryPart) *domain.Inquiry {
	t.Helper()

	inquiry := &domain.Inquiry{
		InquiryNumber: number,
		CustomerName:  "Test Customer",
		CustomerEmail: "test@example.com",
		Parts:         parts,
	}
	require.NoError(t, db.Create(inquiry).Error)
	return inquiry
}

// QuotationOption customizes a test quotation before insert
type QuotationOption func(q *domain.Quotation)

// WithPointer sets the artifact pointer
func WithPointer(name string) QuotationOption {
	return func(q *domain.Quotation) {
		q.PDFFilename = &name
	}
}

// WithCreatedAt sets the creation time
func WithCreatedAt(at time.Time) QuotationOption {
	return func(q *domain.Quotation) {
		q.CreatedAt = at
		q.UpdatedAt = at
	}
}

// WithItems attaches line items
func WithItems(items ...domain.QuotationItem) QuotationOption {
	return func(q *domain.Quotation) {
		q.Items = items
	}
}

// CreateTestQuotation inserts a quotation referencing ref
func CreateTestQuotation(t *testing.T, db *gorm.DB, ref domain.InquiryRef, opts ...QuotationOption) *domain.Quotation {
	t.Helper()

	quotation := &domain.Quotation{
		QuotationNumber: "Q-" + uuid.NewString()[:8],
		InquiryRef:      ref,
		Status:          domain.QuotationStatusCreated,
	}
	for _, opt := range opts {
		opt(quotation)
	}
	require.NoError(t, db.Create(quotation).Error)
	return quotation
}
