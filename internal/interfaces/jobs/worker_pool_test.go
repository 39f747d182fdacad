package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerlink/internal/domain/holdings"
)

type funcJob struct {
	userID string
	run    func(ctx context.Context) error
}

func (j funcJob) Execute(ctx context.Context) error { return j.run(ctx) }
func (j funcJob) UserID() string                    { return j.userID }
func (j funcJob) Description() string               { return "test job" }

func TestWorkerPool_RunsAllJobs(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 3, 0, time.Second, 10)
	wp.Start()

	var ran atomic.Int32
	var jobs []Job
	for i := 0; i < 6; i++ {
		fail := i%3 == 0
		jobs = append(jobs, funcJob{userID: "u", run: func(ctx context.Context) error {
			ran.Add(1)
			if fail {
				return errors.New("boom")
			}
			return nil
		}})
	}

	assert.Equal(t, 6, wp.SubmitBatch(jobs))
	stats := wp.Shutdown(5 * time.Second)

	assert.Equal(t, int32(6), ran.Load())
	assert.Equal(t, Stats{Succeeded: 4, Failed: 2}, stats)
}

func TestWorkerPool_QueueFull(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 1, 0, time.Second, 1)

	noop := funcJob{userID: "u", run: func(context.Context) error { return nil }}
	require.NoError(t, wp.Submit(noop))
	assert.Error(t, wp.Submit(noop), "second job exceeds the queue before workers start")

	wp.Start()
	stats := wp.Shutdown(time.Second)
	assert.Equal(t, Stats{Succeeded: 1, Dropped: 1}, stats)
}

func TestWorkerPool_JobTimeout(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 1, 0, 20*time.Millisecond, 1)
	wp.Start()

	require.NoError(t, wp.Submit(funcJob{userID: "u", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	stats := wp.Shutdown(time.Second)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestWorkerPool_PanicCountsAsFailure(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 1, 0, time.Second, 2)
	wp.Start()

	require.NoError(t, wp.Submit(funcJob{userID: "u1", run: func(context.Context) error { panic("boom") }}))
	require.NoError(t, wp.Submit(funcJob{userID: "u2", run: func(context.Context) error { return nil }}))

	stats := wp.Shutdown(time.Second)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Succeeded, "worker keeps running after a panic")
}

func TestWorkerPool_ShutdownTimeoutCancelsJobs(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 1, 0, time.Minute, 1)
	wp.Start()

	started := make(chan struct{})
	require.NoError(t, wp.Submit(funcJob{userID: "u", run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}))
	<-started

	stats := wp.Shutdown(20 * time.Millisecond)
	assert.Equal(t, int64(1), stats.Failed)
}

type mockSyncer struct {
	result *holdings.SyncResult
	err    error
}

func (m mockSyncer) SyncAssets(ctx context.Context, userID string) (*holdings.SyncResult, error) {
	return m.result, m.err
}

func TestHoldingsSyncJob(t *testing.T) {
	tests := []struct {
		name       string
		syncer     mockSyncer
		wantErr    bool
		wantResult bool
	}{
		{"Success", mockSyncer{result: &holdings.SyncResult{Inserted: 3}}, false, true},
		{"Partial", mockSyncer{result: &holdings.SyncResult{Inserted: 2, Failed: 1, Errors: []string{"row"}}}, true, true},
		{"Failure", mockSyncer{err: holdings.ErrCategoryNotFound}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			var got *holdings.SyncResult
			job := NewHoldingsSyncJob("user-1", tt.syncer, func(r *holdings.SyncResult) {
				mu.Lock()
				got = r
				mu.Unlock()
			})

			err := job.Execute(context.Background())
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
			assert.Equal(t, tt.wantResult, got != nil)
			assert.Equal(t, "user-1", job.UserID())
		})
	}

	err := NewHoldingsSyncJob("user-1", mockSyncer{err: holdings.ErrCategoryNotFound}, nil).Execute(context.Background())
	assert.ErrorIs(t, err, holdings.ErrCategoryNotFound)
}
