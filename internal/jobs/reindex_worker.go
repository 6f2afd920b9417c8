package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/docwise/medkb/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts for a failed reindex job.
	MaxRetries = 3

	// claimBatchSize bounds how many jobs one poll cycle claims.
	claimBatchSize = 10
)

// ReindexJobRepository defines the persistence the worker needs.
type ReindexJobRepository interface {
	// GetPendingJobs claims up to limit pending jobs for processing.
	GetPendingJobs(ctx context.Context, limit int) ([]*domain.ReindexJob, error)

	// UpdateStatus updates a job's status and last error.
	UpdateStatus(ctx context.Context, jobID string, status domain.ReindexJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job.
	IncrementRetries(ctx context.Context, jobID string) error
}

// Reindexer rebuilds one tenant's slice of the vector index.
type Reindexer interface {
	Reindex(ctx context.Context, tenantID string) (int, error)
}

// ReindexWorker drains queued tenant reindex jobs.
type ReindexWorker struct {
	repo    ReindexJobRepository
	indexer Reindexer
}

func NewReindexWorker(repo ReindexJobRepository, indexer Reindexer) *ReindexWorker {
	return &ReindexWorker{repo: repo, indexer: indexer}
}

// ProcessJobs implements the JobProcessor interface.
func (w *ReindexWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("jobs: processing %d pending reindex jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("jobs: error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *ReindexWorker) processJob(ctx context.Context, job *domain.ReindexJob) error {
	count, err := w.indexer.Reindex(ctx, job.TenantID)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.ReindexJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("jobs: job %s completed, %d points for tenant %s", job.ID, count, job.TenantID)
	return nil
}

// handleJobFailure retries a failed job until MaxRetries, then parks it as
// failed with the last error recorded.
func (w *ReindexWorker) handleJobFailure(ctx context.Context, job *domain.ReindexJob, jobErr error) error {
	log.Printf("jobs: job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("jobs: job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.ReindexJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("jobs: job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.ReindexJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
