package repository

import (
	"context"
	"time"

	"github.com/docwise/medkb/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReindexJobRepository persists queued tenant reindex jobs for the
// background worker.
type ReindexJobRepository struct {
	pool *pgxpool.Pool
}

func NewReindexJobRepository(pool *pgxpool.Pool) *ReindexJobRepository {
	return &ReindexJobRepository{pool: pool}
}

// Enqueue inserts a pending job for the tenant unless one is already
// pending, so bursts of record updates collapse into a single reindex.
func (r *ReindexJobRepository) Enqueue(ctx context.Context, tenantID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reindex_jobs (id, tenant_id, status, retries, created_at, updated_at)
		 SELECT $1, $2, 'pending', 0, now(), now()
		 WHERE NOT EXISTS (
			SELECT 1 FROM reindex_jobs WHERE tenant_id = $2 AND status = 'pending'
		 )`,
		uuid.NewString(), tenantID,
	)
	return err
}

// GetPendingJobs claims up to limit pending jobs by flipping them to
// processing. SKIP LOCKED keeps concurrent workers from claiming the same
// row.
func (r *ReindexJobRepository) GetPendingJobs(ctx context.Context, limit int) ([]*domain.ReindexJob, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx,
		`UPDATE reindex_jobs SET status = 'processing', updated_at = now()
		 WHERE id IN (
			SELECT id FROM reindex_jobs
			WHERE status = 'pending'
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, tenant_id, status, retries, COALESCE(last_error, ''), created_at, updated_at`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ReindexJob
	for rows.Next() {
		var job domain.ReindexJob
		if err := rows.Scan(&job.ID, &job.TenantID, &job.Status, &job.Retries, &job.LastError, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

func (r *ReindexJobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.ReindexJobStatus, errMsg string) error {
	var lastError *string
	if errMsg != "" {
		lastError = &errMsg
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE reindex_jobs SET status = $1, last_error = $2, updated_at = $3 WHERE id = $4`,
		string(status), lastError, time.Now().UTC(), jobID,
	)
	return err
}

func (r *ReindexJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE reindex_jobs SET retries = retries + 1, updated_at = now() WHERE id = $1`,
		jobID,
	)
	return err
}
