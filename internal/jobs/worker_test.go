package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docwise/medkb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProcessor struct {
	calls atomic.Int32
	err   error
}

func (p *countingProcessor) ProcessJobs(_ context.Context) error {
	p.calls.Add(1)
	return p.err
}

func TestWorkerPollsAndStops(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, 10*time.Millisecond)

	go worker.Start(context.Background())
	time.Sleep(55 * time.Millisecond)
	worker.Stop()

	calls := processor.calls.Load()
	assert.GreaterOrEqual(t, calls, int32(2))

	// No more polls after Stop returns.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, processor.calls.Load())
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Start(ctx)
	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case <-worker.doneChan:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorkerSurvivesProcessorErrors(t *testing.T) {
	processor := &countingProcessor{err: errors.New("boom")}
	worker := NewWorker(processor, 10*time.Millisecond)

	go worker.Start(context.Background())
	time.Sleep(45 * time.Millisecond)
	worker.Stop()

	assert.GreaterOrEqual(t, processor.calls.Load(), int32(2))
}

type fakeJobRepo struct {
	pending   []*domain.ReindexJob
	statuses  map[string]domain.ReindexJobStatus
	lastErrs  map[string]string
	retries   map[string]int
	claimErr  error
	updateErr error
}

func newFakeJobRepo(jobs ...*domain.ReindexJob) *fakeJobRepo {
	return &fakeJobRepo{
		pending:  jobs,
		statuses: make(map[string]domain.ReindexJobStatus),
		lastErrs: make(map[string]string),
		retries:  make(map[string]int),
	}
}

func (r *fakeJobRepo) GetPendingJobs(_ context.Context, limit int) ([]*domain.ReindexJob, error) {
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	jobs := r.pending
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	r.pending = nil
	return jobs, nil
}

func (r *fakeJobRepo) UpdateStatus(_ context.Context, jobID string, status domain.ReindexJobStatus, errMsg string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.statuses[jobID] = status
	r.lastErrs[jobID] = errMsg
	return nil
}

func (r *fakeJobRepo) IncrementRetries(_ context.Context, jobID string) error {
	r.retries[jobID]++
	return nil
}

type fakeReindexer struct {
	count   int
	err     error
	tenants []string
}

func (f *fakeReindexer) Reindex(_ context.Context, tenantID string) (int, error) {
	f.tenants = append(f.tenants, tenantID)
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

func TestReindexWorkerCompletesJobs(t *testing.T) {
	repo := newFakeJobRepo(
		&domain.ReindexJob{ID: "job-1", TenantID: "tenant-a", Status: domain.ReindexJobStatusPending},
		&domain.ReindexJob{ID: "job-2", TenantID: "tenant-b", Status: domain.ReindexJobStatusPending},
	)
	indexer := &fakeReindexer{count: 7}
	worker := NewReindexWorker(repo, indexer)

	require.NoError(t, worker.ProcessJobs(context.Background()))

	assert.Equal(t, []string{"tenant-a", "tenant-b"}, indexer.tenants)
	assert.Equal(t, domain.ReindexJobStatusCompleted, repo.statuses["job-1"])
	assert.Equal(t, domain.ReindexJobStatusCompleted, repo.statuses["job-2"])
}

func TestReindexWorkerNoPendingJobs(t *testing.T) {
	repo := newFakeJobRepo()
	indexer := &fakeReindexer{}
	worker := NewReindexWorker(repo, indexer)

	require.NoError(t, worker.ProcessJobs(context.Background()))
	assert.Empty(t, indexer.tenants)
}

func TestReindexWorkerRetriesFailedJob(t *testing.T) {
	repo := newFakeJobRepo(
		&domain.ReindexJob{ID: "job-1", TenantID: "tenant-a", Status: domain.ReindexJobStatusPending, Retries: 0},
	)
	indexer := &fakeReindexer{err: errors.New("embedding api down")}
	worker := NewReindexWorker(repo, indexer)

	require.NoError(t, worker.ProcessJobs(context.Background()))

	assert.Equal(t, 1, repo.retries["job-1"])
	assert.Equal(t, domain.ReindexJobStatusPending, repo.statuses["job-1"])
	assert.Contains(t, repo.lastErrs["job-1"], "retry 1")
}

func TestReindexWorkerParksJobAfterMaxRetries(t *testing.T) {
	repo := newFakeJobRepo(
		&domain.ReindexJob{ID: "job-1", TenantID: "tenant-a", Status: domain.ReindexJobStatusPending, Retries: MaxRetries - 1},
	)
	indexer := &fakeReindexer{err: errors.New("embedding api down")}
	worker := NewReindexWorker(repo, indexer)

	require.NoError(t, worker.ProcessJobs(context.Background()))

	assert.Equal(t, domain.ReindexJobStatusFailed, repo.statuses["job-1"])
	assert.Contains(t, repo.lastErrs["job-1"], "max retries exceeded")
}

func TestReindexWorkerClaimFailure(t *testing.T) {
	repo := newFakeJobRepo()
	repo.claimErr = errors.New("db down")
	worker := NewReindexWorker(repo, &fakeReindexer{})

	require.Error(t, worker.ProcessJobs(context.Background()))
}
