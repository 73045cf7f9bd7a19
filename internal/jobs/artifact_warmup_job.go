package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/quotation-api/internal/artifact"
	"go.uber.org/zap"
)

// ArtifactWarmupJobName is the name of the artifact warm-up job
const ArtifactWarmupJobName = "artifact_warmup"

// DefaultWarmupBatchSize is used when no batch size is configured
const DefaultWarmupBatchSize = 100

// QuotationLister pages through quotation IDs in a stable order
type QuotationLister interface {
	ListIDs(ctx context.Context, page, pageSize int) ([]uuid.UUID, int64, error)
}

// ArtifactEnsurer makes sure a quotation's artifact is present in the store.
// *artifact.Coordinator satisfies it.
type ArtifactEnsurer interface {
	ServeQuotation(ctx context.Context, id uuid.UUID) (*artifact.Artifact, error)
}

// WarmupResult counts the outcome of one warm-up run
type WarmupResult struct {
	Checked     int
	Regenerated int
	Failed      int
}

// ArtifactWarmupJob walks every quotation and rebuilds any artifact missing from
// the store, so that documents lost in a storage wipe come back without waiting
// for someone to request them.
type ArtifactWarmupJob struct {
	quotations QuotationLister
	artifacts  ArtifactEnsurer
	logger     *zap.Logger
	batchSize  int
	timeout    time.Duration
}

// NewArtifactWarmupJob creates a new warm-up job.
// The timeout bounds one whole run.
func NewArtifactWarmupJob(quotations QuotationLister, artifacts ArtifactEnsurer, logger *zap.Logger, batchSize int, timeout time.Duration) *ArtifactWarmupJob {
	if batchSize <= 0 {
		batchSize = DefaultWarmupBatchSize
	}
	return &ArtifactWarmupJob{
		quotations: quotations,
		artifacts:  artifacts,
		logger:     logger,
		batchSize:  batchSize,
		timeout:    timeout,
	}
}

// Run executes the warm-up job.
// This is called by the scheduler according to the cron expression.
func (j *ArtifactWarmupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	j.logger.Info("starting artifact warm-up job")

	result, err := j.Warm(ctx)
	if err != nil {
		j.logger.Error("artifact warm-up job stopped early",
			zap.Error(err),
			zap.Int("checked", result.Checked),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("artifact warm-up job completed",
		zap.Int("checked", result.Checked),
		zap.Int("regenerated", result.Regenerated),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)))
}

// Warm checks every quotation page by page. A failure for one quotation is
// counted and logged; only listing errors and ctx end the run.
func (j *ArtifactWarmupJob) Warm(ctx context.Context) (WarmupResult, error) {
	var result WarmupResult

	for page := 1; ; page++ {
		ids, total, err := j.quotations.ListIDs(ctx, page, j.batchSize)
		if err != nil {
			return result, err
		}

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			result.Checked++
			art, err := j.artifacts.ServeQuotation(ctx, id)
			if err != nil {
				var ae *artifact.Error
				if errors.As(err, &ae) && ae.Kind == artifact.KindNotFound {
					// deleted since the page was listed
					continue
				}
				result.Failed++
				j.logger.Warn("failed to warm artifact",
					zap.String("quotationId", id.String()),
					zap.Error(err))
				continue
			}
			if art.Regenerated {
				result.Regenerated++
			}
		}

		if len(ids) < j.batchSize || int64(page*j.batchSize) >= total {
			return result, nil
		}
	}
}

// RegisterArtifactWarmupJob registers the warm-up job with the scheduler.
// If runOnStartup is true it also runs once immediately in a background
// goroutine so it doesn't block API startup.
func RegisterArtifactWarmupJob(scheduler *Scheduler, quotations QuotationLister, artifacts ArtifactEnsurer, logger *zap.Logger, cronExpr string, batchSize int, timeout time.Duration, runOnStartup bool) error {
	job := NewArtifactWarmupJob(quotations, artifacts, logger, batchSize, timeout)

	if err := scheduler.AddJob(ArtifactWarmupJobName, cronExpr, job.Run); err != nil {
		return err
	}

	if runOnStartup {
		go job.Run()
	}
	return nil
}
