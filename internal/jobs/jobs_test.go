package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/quotation-api/internal/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLister struct {
	ids   []uuid.UUID
	err   error
	pages []int
}

func (s *stubLister) ListIDs(ctx context.Context, page, pageSize int) ([]uuid.UUID, int64, error) {
	s.pages = append(s.pages, page)
	if s.err != nil {
		return nil, 0, s.err
	}
	start := (page - 1) * pageSize
	if start >= len(s.ids) {
		return nil, int64(len(s.ids)), nil
	}
	end := start + pageSize
	if end > len(s.ids) {
		end = len(s.ids)
	}
	return s.ids[start:end], int64(len(s.ids)), nil
}

type stubEnsurer struct {
	mu          sync.Mutex
	seen        []uuid.UUID
	regenerated map[uuid.UUID]bool
	errs        map[uuid.UUID]error
}

func (s *stubEnsurer) ServeQuotation(ctx context.Context, id uuid.UUID) (*artifact.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, id)
	if err := s.errs[id]; err != nil {
		return nil, err
	}
	return &artifact.Artifact{QuotationID: id, Regenerated: s.regenerated[id]}, nil
}

func makeIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestArtifactWarmupJob_Warm(t *testing.T) {
	t.Run("visits every quotation across pages", func(t *testing.T) {
		ids := makeIDs(5)
		lister := &stubLister{ids: ids}
		ensurer := &stubEnsurer{regenerated: map[uuid.UUID]bool{ids[1]: true, ids[4]: true}}

		job := NewArtifactWarmupJob(lister, ensurer, zap.NewNop(), 2, time.Minute)
		result, err := job.Warm(context.Background())

		require.NoError(t, err)
		assert.Equal(t, ids, ensurer.seen)
		assert.Equal(t, []int{1, 2, 3}, lister.pages)
		assert.Equal(t, WarmupResult{Checked: 5, Regenerated: 2}, result)
	})

	t.Run("stops after an exactly full last page", func(t *testing.T) {
		lister := &stubLister{ids: makeIDs(4)}
		job := NewArtifactWarmupJob(lister, &stubEnsurer{}, zap.NewNop(), 2, time.Minute)

		result, err := job.Warm(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 4, result.Checked)
		assert.Equal(t, []int{1, 2}, lister.pages)
	})

	t.Run("counts failures and keeps going", func(t *testing.T) {
		ids := makeIDs(3)
		ensurer := &stubEnsurer{errs: map[uuid.UUID]error{
			ids[0]: &artifact.Error{Kind: artifact.KindBuildFailure, Err: errors.New("boom")},
		}}
		job := NewArtifactWarmupJob(&stubLister{ids: ids}, ensurer, zap.NewNop(), 10, time.Minute)

		result, err := job.Warm(context.Background())

		require.NoError(t, err)
		assert.Len(t, ensurer.seen, 3)
		assert.Equal(t, WarmupResult{Checked: 3, Failed: 1}, result)
	})

	t.Run("quotation deleted mid-run is not a failure", func(t *testing.T) {
		ids := makeIDs(2)
		ensurer := &stubEnsurer{errs: map[uuid.UUID]error{
			ids[1]: &artifact.Error{Kind: artifact.KindNotFound, Err: errors.New("gone")},
		}}
		job := NewArtifactWarmupJob(&stubLister{ids: ids}, ensurer, zap.NewNop(), 10, time.Minute)

		result, err := job.Warm(context.Background())

		require.NoError(t, err)
		assert.Equal(t, WarmupResult{Checked: 2}, result)
	})

	t.Run("listing error ends the run", func(t *testing.T) {
		listErr := errors.New("connection refused")
		job := NewArtifactWarmupJob(&stubLister{err: listErr}, &stubEnsurer{}, zap.NewNop(), 10, time.Minute)

		_, err := job.Warm(context.Background())

		assert.ErrorIs(t, err, listErr)
	})

	t.Run("canceled context ends the run", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ensurer := &stubEnsurer{}
		job := NewArtifactWarmupJob(&stubLister{ids: makeIDs(3)}, ensurer, zap.NewNop(), 10, time.Minute)

		_, err := job.Warm(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, ensurer.seen)
	})

	t.Run("empty table", func(t *testing.T) {
		job := NewArtifactWarmupJob(&stubLister{}, &stubEnsurer{}, zap.NewNop(), 0, time.Minute)

		result, err := job.Warm(context.Background())

		require.NoError(t, err)
		assert.Equal(t, WarmupResult{}, result)
		assert.Equal(t, DefaultWarmupBatchSize, job.batchSize)
	})
}

func TestScheduler_AddJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("warmup", "0 */30 * * * *", func() {}))
	assert.Error(t, s.AddJob("warmup", "@hourly", func() {}), "duplicate names are rejected")
	assert.Error(t, s.AddJob("broken", "not a cron expression", func() {}))
	assert.Equal(t, []string{"warmup"}, s.GetJobNames())

	require.NoError(t, s.RemoveJob("warmup"))
	assert.Empty(t, s.GetJobNames())
	assert.Error(t, s.RemoveJob("warmup"))
}

func TestRegisterArtifactWarmupJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	err := RegisterArtifactWarmupJob(s, &stubLister{}, &stubEnsurer{}, zap.NewNop(), "@every 1h", 10, time.Minute, false)

	require.NoError(t, err)
	assert.Equal(t, []string{ArtifactWarmupJobName}, s.GetJobNames())
}
