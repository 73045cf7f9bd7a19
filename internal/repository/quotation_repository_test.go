package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/straye-as/quotation-api/internal/domain"
	"github.com/straye-as/quotation-api/internal/repository"
	"github.com/straye-as/quotation-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestQuotationRepository_GetByID_PreloadsItemsInOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)

	q := testutil.CreateTestQuotation(t, db, "INQ-1", testutil.WithItems(
		domain.QuotationItem{Position: 2, PartRef: "second"},
		domain.QuotationItem{Position: 1, PartRef: "first"},
	))

	got, err := repo.GetByID(context.Background(), q.ID)

	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "first", got.Items[0].PartRef)
	assert.Equal(t, "second", got.Items[1].PartRef)
}

func TestQuotationRepository_FindByPointer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)
	ctx := context.Background()

	q := testutil.CreateTestQuotation(t, db, "INQ-1", testutil.WithPointer("quotation-1700000000000-1234.pdf"))
	testutil.CreateTestQuotation(t, db, "INQ-2")

	got, err := repo.FindByPointer(ctx, "quotation-1700000000000-1234.pdf")
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)

	_, err = repo.FindByPointer(ctx, "quotation-1700000000000-1234")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQuotationRepository_FindByPointerLike(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)
	ctx := context.Background()

	older := testutil.CreateTestQuotation(t, db, "INQ-1",
		testutil.WithPointer("Quotation-1700000000000-1234.pdf"),
		testutil.WithCreatedAt(testutil.At(1700000000000)),
	)
	newer := testutil.CreateTestQuotation(t, db, "INQ-2",
		testutil.WithPointer("archive/quotation-1700000000000-1234.pdf"),
		testutil.WithCreatedAt(testutil.At(1700000100000)),
	)

	t.Run("case insensitive substring picks newest", func(t *testing.T) {
		got, err := repo.FindByPointerLike(ctx, "quotation-1700000000000-1234")
		require.NoError(t, err)
		assert.Equal(t, newer.ID, got.ID)
		assert.NotEqual(t, older.ID, got.ID)
	})

	t.Run("wildcards match literally", func(t *testing.T) {
		_, err := repo.FindByPointerLike(ctx, "quotation%1234")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		_, err = repo.FindByPointerLike(ctx, "quotation_1700000000000")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestQuotationRepository_FindLatestByInquiryRefs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)
	ctx := context.Background()

	inquiry := testutil.CreateTestInquiry(t, db, "INQ-2024-0042")
	byNumber := testutil.CreateTestQuotation(t, db, domain.InquiryRef(inquiry.InquiryNumber),
		testutil.WithCreatedAt(testutil.At(1700000000000)))
	byID := testutil.CreateTestQuotation(t, db, domain.InquiryRef(inquiry.ID.String()),
		testutil.WithCreatedAt(testutil.At(1700000500000)))

	got, err := repo.FindLatestByInquiryRefs(ctx, inquiry.ID.String(), inquiry.InquiryNumber)
	require.NoError(t, err)
	assert.Equal(t, byID.ID, got.ID)

	got, err = repo.FindLatestByInquiryRefs(ctx, inquiry.InquiryNumber)
	require.NoError(t, err)
	assert.Equal(t, byNumber.ID, got.ID)

	_, err = repo.FindLatestByInquiryRefs(ctx, "INQ-none")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQuotationRepository_FindLatestCreatedBetween(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)
	ctx := context.Background()

	base := testutil.At(1700000000000)
	testutil.CreateTestQuotation(t, db, "INQ-1", testutil.WithCreatedAt(base.Add(-3*time.Second)))
	inWindow := testutil.CreateTestQuotation(t, db, "INQ-2", testutil.WithCreatedAt(base.Add(2*time.Second)))
	testutil.CreateTestQuotation(t, db, "INQ-3", testutil.WithCreatedAt(base.Add(30*time.Second)))

	got, err := repo.FindLatestCreatedBetween(ctx, base.Add(-5*time.Second), base.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, inWindow.ID, got.ID)

	_, err = repo.FindLatestCreatedBetween(ctx, base.Add(time.Hour), base.Add(2*time.Hour))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQuotationRepository_UpdatePointer_OnlyTouchesPointer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)
	ctx := context.Background()

	q := testutil.CreateTestQuotation(t, db, "INQ-1", testutil.WithPointer("old.pdf"))
	q.TotalAmount = 999

	require.NoError(t, repo.UpdatePointer(ctx, q.ID, "quotation_INQ-1_1700000000000.pdf"))

	got, err := repo.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "quotation_INQ-1_1700000000000.pdf", got.Pointer())
	assert.Equal(t, float64(0), got.TotalAmount)
	assert.Equal(t, q.QuotationNumber, got.QuotationNumber)
}

func TestQuotationRepository_UpdatePointer_MissingRecord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)

	q := testutil.CreateTestQuotation(t, db, "INQ-1")
	require.NoError(t, db.Delete(&domain.Quotation{}, "id = ?", q.ID).Error)

	err := repo.UpdatePointer(context.Background(), q.ID, "x.pdf")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQuotationRepository_ListIDs_Pages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		testutil.CreateTestQuotation(t, db, "INQ-1",
			testutil.WithCreatedAt(testutil.At(1700000000000+int64(i)*1000)))
	}

	first, total, err := repo.ListIDs(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, first, 2)

	last, _, err := repo.ListIDs(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, last, 1)
	assert.NotContains(t, first, last[0])
}
