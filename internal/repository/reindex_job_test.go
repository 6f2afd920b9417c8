//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/docwise/medkb/internal/domain"
	"github.com/docwise/medkb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReindexJobRepository_EnqueueCollapsesPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenant := createTestTenant(ctx, t, NewTenantRepository(pool), "Praxis A")
	repo := NewReindexJobRepository(pool)

	require.NoError(t, repo.Enqueue(ctx, tenant.ID))
	require.NoError(t, repo.Enqueue(ctx, tenant.ID))
	require.NoError(t, repo.Enqueue(ctx, tenant.ID))

	jobs, err := repo.GetPendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, tenant.ID, jobs[0].TenantID)
	assert.Equal(t, domain.ReindexJobStatusProcessing, jobs[0].Status)
}

func TestReindexJobRepository_GetPendingJobs_ClaimsOnce(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenant := createTestTenant(ctx, t, NewTenantRepository(pool), "Praxis A")
	repo := NewReindexJobRepository(pool)

	require.NoError(t, repo.Enqueue(ctx, tenant.ID))

	jobs, err := repo.GetPendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	// The claimed job is processing, a second poll finds nothing
	jobs, err = repo.GetPendingJobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestReindexJobRepository_UpdateStatusAndRetries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenant := createTestTenant(ctx, t, NewTenantRepository(pool), "Praxis A")
	repo := NewReindexJobRepository(pool)

	require.NoError(t, repo.Enqueue(ctx, tenant.ID))
	jobs, err := repo.GetPendingJobs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	job := jobs[0]

	require.NoError(t, repo.IncrementRetries(ctx, job.ID))
	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.ReindexJobStatusPending, "retry 1: embed failed"))

	jobs, err = repo.GetPendingJobs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, jobs[0].Retries)
	assert.Equal(t, "retry 1: embed failed", jobs[0].LastError)

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.ReindexJobStatusCompleted, ""))
	jobs, err = repo.GetPendingJobs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
