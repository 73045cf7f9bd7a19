package artifact_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/quotation-api/internal/artifact"
	"github.com/straye-as/quotation-api/internal/document"
	"github.com/straye-as/quotation-api/internal/domain"
	"github.com/straye-as/quotation-api/internal/locator"
	"github.com/straye-as/quotation-api/internal/repository"
	"github.com/straye-as/quotation-api/internal/storage"
	"github.com/straye-as/quotation-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const danglingName = "quotation-1700000000000-7421.pdf"

// countingBuilder wraps the real builder and counts calls.
// When gate is set, Build blocks until it is closed.
type countingBuilder struct {
	inner    *document.Builder
	calls    atomic.Int32
	gate     chan struct{}
	failNext atomic.Bool
	panics   bool
}

func (b *countingBuilder) Build(ctx context.Context, q *domain.Quotation, inq *domain.Inquiry) (*document.Result, error) {
	b.calls.Add(1)
	if b.gate != nil {
		<-b.gate
	}
	if b.panics {
		panic("renderer exploded")
	}
	if b.failNext.CompareAndSwap(true, false) {
		return nil, errors.New("renderer failed")
	}
	return b.inner.Build(ctx, q, inq)
}

// countingLocator records how often resolution ran
type countingLocator struct {
	inner *locator.Locator
	calls atomic.Int32
}

func (l *countingLocator) Locate(ctx context.Context, filename string) (locator.Match, bool, error) {
	l.calls.Add(1)
	return l.inner.Locate(ctx, filename)
}

type failingPointerRecords struct {
	*repository.QuotationRepository
}

func (failingPointerRecords) UpdatePointer(ctx context.Context, id uuid.UUID, name string) error {
	return errors.New("database is read-only")
}

type failingWriteStore struct {
	storage.Storage
}

func (failingWriteStore) Write(ctx context.Context, name string, data []byte) error {
	return errors.New("disk full")
}

type fixture struct {
	db          *gorm.DB
	store       storage.Storage
	builder     *countingBuilder
	locator     *countingLocator
	quotations  *repository.QuotationRepository
	inquiries   *repository.InquiryRepository
	coordinator *artifact.Coordinator
}

func newFixture(t *testing.T, opts artifact.Options) *fixture {
	db := testutil.SetupTestDB(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		db:         db,
		store:      store,
		builder:    &countingBuilder{inner: document.NewBuilder("Straye Industri", "NOK")},
		quotations: repository.NewQuotationRepository(db),
		inquiries:  repository.NewInquiryRepository(db),
	}
	f.locator = &countingLocator{inner: locator.NewLocator(f.quotations, f.inquiries, zap.NewNop())}
	f.coordinator = artifact.NewCoordinator(f.store, f.builder, nil, opts, zap.NewNop())
	return f
}

func (f *fixture) attach() {
	f.attachWith(f.quotations)
}

func (f *fixture) attachWith(records artifact.Records) {
	f.coordinator.Attach(artifact.Sources{
		Quotations: records,
		Inquiries:  f.inquiries,
		Locator:    f.locator,
	})
}

// seedDangling creates an inquiry and a quotation whose pointer names a missing file
func (f *fixture) seedDangling(t *testing.T) *domain.Quotation {
	inquiry := testutil.CreateTestInquiry(t, f.db, "INQ-2024-0042",
		domain.InquiryPart{FileName: "bracket.dxf", Material: "Steel", Thickness: "2mm", Quantity: 5})
	return testutil.CreateTestQuotation(t, f.db, domain.InquiryRef(inquiry.ID.String()),
		testutil.WithPointer(danglingName),
		testutil.WithCreatedAt(testutil.At(1700000000000)),
	)
}

func kindOf(t *testing.T, err error) artifact.Kind {
	t.Helper()
	var ae *artifact.Error
	require.True(t, errors.As(err, &ae), "expected *artifact.Error, got %v", err)
	return ae.Kind
}

func TestServe_FastPathNeedsNoDatabase(t *testing.T) {
	f := newFixture(t, artifact.Options{ReadyTimeout: 10 * time.Millisecond})
	content := []byte("%PDF-1.3 stored")
	require.NoError(t, f.store.Write(context.Background(), "stored.pdf", content))

	// never attached: any database access would fail with dependency_not_ready
	art, err := f.coordinator.Serve(context.Background(), "stored.pdf")

	require.NoError(t, err)
	assert.Equal(t, content, art.Data)
	assert.Equal(t, "stored.pdf", art.Filename)
	assert.False(t, art.Regenerated)
	assert.Equal(t, int32(0), f.locator.calls.Load())
	assert.Equal(t, int32(0), f.builder.calls.Load())
}

func TestServe_NotReady(t *testing.T) {
	f := newFixture(t, artifact.Options{ReadyTimeout: 20 * time.Millisecond})

	_, err := f.coordinator.Serve(context.Background(), danglingName)

	assert.Equal(t, artifact.KindDependencyNotReady, kindOf(t, err))
	assert.Equal(t, 503, kindOf(t, err).HTTPStatus())
	assert.ErrorIs(t, err, artifact.ErrNotReady)
}

func TestServe_BecomesReadyWhileWaiting(t *testing.T) {
	f := newFixture(t, artifact.Options{ReadyTimeout: 2 * time.Second})
	f.seedDangling(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		f.attach()
	}()

	art, err := f.coordinator.Serve(context.Background(), danglingName)

	require.NoError(t, err)
	assert.True(t, art.Regenerated)
}

func TestServe_NotFound(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()

	_, err := f.coordinator.Serve(context.Background(), danglingName)

	assert.Equal(t, artifact.KindNotFound, kindOf(t, err))
	assert.Equal(t, int32(0), f.builder.calls.Load())
}

func TestServe_InvalidNameIsNotFound(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()

	_, err := f.coordinator.Serve(context.Background(), "../../etc/passwd")

	assert.Equal(t, artifact.KindNotFound, kindOf(t, err))
	assert.Equal(t, int32(0), f.locator.calls.Load())
}

func TestServe_RebuildsAndLinksCanonicalName(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()
	q := f.seedDangling(t)
	ctx := context.Background()

	art, err := f.coordinator.Serve(ctx, danglingName)
	require.NoError(t, err)

	canonical := "quotation_INQ-2024-0042_1700000000000.pdf"
	assert.Equal(t, canonical, art.Filename)
	assert.Equal(t, q.ID, art.QuotationID)
	assert.True(t, art.Regenerated)
	assert.True(t, bytes.HasPrefix(art.Data, []byte("%PDF-")))

	// pointer now names a file that exists, with the exact served bytes
	reloaded, err := f.quotations.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, canonical, reloaded.Pointer())
	stored, err := f.store.Read(ctx, reloaded.Pointer())
	require.NoError(t, err)
	assert.Equal(t, art.Data, stored)

	// status is untouched
	assert.Equal(t, domain.QuotationStatusCreated, reloaded.Status)
}

func TestServe_CanonicalNameIsThenServedFromStore(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()
	f.seedDangling(t)
	ctx := context.Background()

	first, err := f.coordinator.Serve(ctx, danglingName)
	require.NoError(t, err)
	calls := f.locator.calls.Load()

	second, err := f.coordinator.Serve(ctx, first.Filename)

	require.NoError(t, err)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, calls, f.locator.calls.Load())
	assert.Equal(t, int32(1), f.builder.calls.Load())
}

func TestServe_OldNameAfterRebuildDoesNotBuildAgain(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()
	f.seedDangling(t)
	ctx := context.Background()

	_, err := f.coordinator.Serve(ctx, danglingName)
	require.NoError(t, err)

	// the old name still resolves (by timestamp) and the double-check serves the linked file
	art, err := f.coordinator.Serve(ctx, danglingName)

	require.NoError(t, err)
	assert.False(t, art.Regenerated)
	assert.Equal(t, int32(1), f.builder.calls.Load())
}

func TestServe_ConcurrentRequestsBuildOnce(t *testing.T) {
	f := newFixture(t, artifact.Options{WaitTimeout: 5 * time.Second})
	f.builder.gate = make(chan struct{})
	f.attach()
	f.seedDangling(t)

	const n = 10
	results := make([]*artifact.Artifact, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.coordinator.Serve(context.Background(), danglingName)
		}(i)
	}

	// let every request reach the flight before the build finishes
	require.Eventually(t, func() bool { return f.builder.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(f.builder.gate)
	wg.Wait()

	assert.Equal(t, int32(1), f.builder.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Data, results[i].Data)
		assert.Equal(t, results[0].Filename, results[i].Filename)
	}
}

func TestServe_DifferentNamesForOneQuotationBuildOnce(t *testing.T) {
	f := newFixture(t, artifact.Options{WaitTimeout: 5 * time.Second})
	f.builder.gate = make(chan struct{})
	f.attach()
	q := f.seedDangling(t)

	// exact pointer, fuzzy pointer, timestamp proximity and inquiry number
	names := []string{
		danglingName,
		"QUOTATION-1700000000000-7421.PDF",
		"quotation-1700000002000-xyz.pdf",
		"quotation_INQ-2024-0042_1700000000000.pdf",
	}

	results := make([]*artifact.Artifact, len(names))
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i], errs[i] = f.coordinator.Serve(context.Background(), name)
		}(i, name)
	}

	require.Eventually(t, func() bool { return f.builder.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(f.builder.gate)
	wg.Wait()

	assert.Equal(t, int32(1), f.builder.calls.Load())
	for i := range names {
		require.NoError(t, errs[i], names[i])
		assert.Equal(t, q.ID, results[i].QuotationID)
		assert.Equal(t, results[0].Data, results[i].Data)
	}

	reloaded, err := f.quotations.GetByID(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuotationStatusCreated, reloaded.Status)
	assert.True(t, reloaded.Status.IsValid())
	exists, err := f.store.Exists(context.Background(), reloaded.Pointer())
	require.NoError(t, err)
	assert.True(t, exists)
}

// blockOneBuilder blocks builds for a single quotation until gate is closed
type blockOneBuilder struct {
	inner   *document.Builder
	blocked uuid.UUID
	started chan struct{}
	gate    chan struct{}
}

func (b *blockOneBuilder) Build(ctx context.Context, q *domain.Quotation, inq *domain.Inquiry) (*document.Result, error) {
	if q.ID == b.blocked {
		close(b.started)
		<-b.gate
	}
	return b.inner.Build(ctx, q, inq)
}

func TestServeQuotation_OtherQuotationsRebuildInParallel(t *testing.T) {
	f := newFixture(t, artifact.Options{WaitTimeout: 5 * time.Second})
	slow := f.seedDangling(t)
	other := testutil.CreateTestInquiry(t, f.db, "INQ-2024-0077",
		domain.InquiryPart{Material: "Aluminium", Thickness: "3mm", Quantity: 2})
	fast := testutil.CreateTestQuotation(t, f.db, domain.InquiryRef(other.ID.String()),
		testutil.WithPointer("quotation-1700000100000-1111.pdf"),
		testutil.WithCreatedAt(testutil.At(1700000100000)),
	)

	builder := &blockOneBuilder{
		inner:   document.NewBuilder("Straye Industri", "NOK"),
		blocked: slow.ID,
		started: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	coordinator := artifact.NewCoordinator(f.store, builder, nil, artifact.Options{WaitTimeout: 5 * time.Second}, zap.NewNop())
	coordinator.Attach(artifact.Sources{Quotations: f.quotations, Inquiries: f.inquiries, Locator: f.locator})

	slowDone := make(chan error, 1)
	go func() {
		_, err := coordinator.ServeQuotation(context.Background(), slow.ID)
		slowDone <- err
	}()
	<-builder.started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	art, err := coordinator.ServeQuotation(ctx, fast.ID)

	require.NoError(t, err)
	assert.True(t, art.Regenerated)
	assert.Equal(t, fast.ID, art.QuotationID)

	select {
	case <-slowDone:
		t.Fatal("blocked rebuild finished before its gate opened")
	default:
	}

	close(builder.gate)
	require.NoError(t, <-slowDone)
}

func TestServe_BuildFailureReleasesLock(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()
	q := f.seedDangling(t)
	f.builder.failNext.Store(true)
	ctx := context.Background()

	_, err := f.coordinator.Serve(ctx, danglingName)
	require.Error(t, err)
	assert.Equal(t, artifact.KindBuildFailure, kindOf(t, err))

	var ae *artifact.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, danglingName, ae.Filename)
	assert.Equal(t, q.ID.String(), ae.QuotationID)

	art, err := f.coordinator.Serve(ctx, danglingName)
	require.NoError(t, err)
	assert.True(t, art.Regenerated)
	assert.Equal(t, int32(2), f.builder.calls.Load())
}

func TestServe_BuilderPanicIsBuildFailure(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.builder.panics = true
	f.attach()
	f.seedDangling(t)

	_, err := f.coordinator.Serve(context.Background(), danglingName)

	assert.Equal(t, artifact.KindBuildFailure, kindOf(t, err))
}

func TestServe_PointerUpdateFailureLeavesPointer(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attachWith(failingPointerRecords{f.quotations})
	q := f.seedDangling(t)
	ctx := context.Background()

	_, err := f.coordinator.Serve(ctx, danglingName)

	assert.Equal(t, artifact.KindPersistFailure, kindOf(t, err))
	assert.Equal(t, 500, kindOf(t, err).HTTPStatus())

	reloaded, err := f.quotations.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, danglingName, reloaded.Pointer())
}

func TestServe_StoreWriteFailureLeavesPointer(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.coordinator = artifact.NewCoordinator(failingWriteStore{f.store}, f.builder, nil, artifact.Options{}, zap.NewNop())
	f.attach()
	q := f.seedDangling(t)
	ctx := context.Background()

	_, err := f.coordinator.Serve(ctx, danglingName)

	assert.Equal(t, artifact.KindPersistFailure, kindOf(t, err))
	reloaded, err := f.quotations.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, danglingName, reloaded.Pointer())
}

func TestServe_WaiterTimeoutDoesNotCancelRebuild(t *testing.T) {
	f := newFixture(t, artifact.Options{WaitTimeout: 30 * time.Millisecond})
	f.builder.gate = make(chan struct{})
	f.attach()
	q := f.seedDangling(t)
	ctx := context.Background()

	_, err := f.coordinator.Serve(ctx, danglingName)
	assert.Equal(t, artifact.KindTimeout, kindOf(t, err))
	assert.Equal(t, 503, kindOf(t, err).HTTPStatus())

	close(f.builder.gate)

	require.Eventually(t, func() bool {
		reloaded, err := f.quotations.GetByID(ctx, q.ID)
		return err == nil && reloaded.Pointer() == "quotation_INQ-2024-0042_1700000000000.pdf"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServe_CanceledRequesterDoesNotCancelRebuild(t *testing.T) {
	f := newFixture(t, artifact.Options{WaitTimeout: 5 * time.Second})
	f.builder.gate = make(chan struct{})
	f.attach()
	q := f.seedDangling(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.coordinator.Serve(ctx, danglingName)
		done <- err
	}()

	require.Eventually(t, func() bool { return f.builder.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	err := <-done
	assert.Equal(t, artifact.KindTimeout, kindOf(t, err))

	close(f.builder.gate)
	require.Eventually(t, func() bool {
		exists, _ := f.store.Exists(context.Background(), "quotation_INQ-2024-0042_1700000000000.pdf")
		return exists
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		reloaded, err := f.quotations.GetByID(context.Background(), q.ID)
		return err == nil && reloaded.Pointer() != danglingName
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeQuotation(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()
	inquiry := testutil.CreateTestInquiry(t, f.db, "INQ-7")
	q := testutil.CreateTestQuotation(t, f.db, domain.InquiryRef(inquiry.InquiryNumber),
		testutil.WithCreatedAt(testutil.At(1700000000000)))
	ctx := context.Background()

	first, err := f.coordinator.ServeQuotation(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "quotation_INQ-7_1700000000000.pdf", first.Filename)
	assert.True(t, first.Regenerated)

	second, err := f.coordinator.ServeQuotation(ctx, q.ID)
	require.NoError(t, err)
	assert.False(t, second.Regenerated)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, int32(1), f.builder.calls.Load())
}

func TestServeQuotation_UnknownID(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()

	_, err := f.coordinator.ServeQuotation(context.Background(), uuid.New())

	assert.Equal(t, artifact.KindNotFound, kindOf(t, err))
}

func TestServeQuotation_MissingInquiryFallsBackToQuotationNumber(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()
	q := testutil.CreateTestQuotation(t, f.db, "INQ-gone", testutil.WithCreatedAt(testutil.At(1700000000000)))

	art, err := f.coordinator.ServeQuotation(context.Background(), q.ID)

	require.NoError(t, err)
	assert.Equal(t, "quotation_"+q.QuotationNumber+"_1700000000000.pdf", art.Filename)
}

func TestRegenerate_RebuildsExistingArtifact(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()
	q := f.seedDangling(t)
	ctx := context.Background()

	_, err := f.coordinator.ServeQuotation(ctx, q.ID)
	require.NoError(t, err)

	art, err := f.coordinator.Regenerate(ctx, q.ID)

	require.NoError(t, err)
	assert.True(t, art.Regenerated)
	assert.Equal(t, int32(2), f.builder.calls.Load())
}

func TestResolve(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	f.attach()
	q := f.seedDangling(t)

	match, err := f.coordinator.Resolve(context.Background(), danglingName)

	require.NoError(t, err)
	assert.Equal(t, locator.StrategyExactPointer, match.Strategy)
	assert.Equal(t, q.ID, match.Quotation.ID)
	assert.Equal(t, int32(0), f.builder.calls.Load())
}

func TestAttach_OnlyFirstCallCounts(t *testing.T) {
	f := newFixture(t, artifact.Options{})
	assert.False(t, f.coordinator.Ready())

	f.attach()
	f.coordinator.Attach(artifact.Sources{})

	assert.True(t, f.coordinator.Ready())
	require.NoError(t, f.coordinator.WaitReady(context.Background()))
}
