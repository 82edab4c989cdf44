package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*JobQueue, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewJobQueue(client, "test:", nil), mr
}

func TestBackoffGrowsExponentiallyAndCaps(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Backoff(1))
	assert.Equal(t, 200*time.Millisecond, Backoff(2))
	assert.Equal(t, 400*time.Millisecond, Backoff(3))
	assert.Equal(t, 30*time.Second, Backoff(20), "backoff must cap at 30s")
	assert.Equal(t, 100*time.Millisecond, Backoff(0), "attemptCount below 1 is treated as 1")
}

func TestSubmitAndClaimJob(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	submitted, err := q.SubmitJob(ctx, NativeJob{WorkspaceID: "ws1", Kind: "export"})
	require.NoError(t, err)
	assert.Equal(t, JobQueued, submitted.Status)
	assert.Equal(t, 1, submitted.MaxAttempts, "zero maxAttempts clamps up to the floor of 1")

	claimed, err := q.ClaimNextJob(ctx, "ws1", "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, JobRunning, claimed.Status)
	assert.Equal(t, 1, claimed.AttemptCount)
	assert.Equal(t, "worker-1", claimed.WorkerID)
}

func TestClaimNextJobReturnsNilWhenEmpty(t *testing.T) {
	q, _ := newTestQueue(t)
	claimed, err := q.ClaimNextJob(context.Background(), "ws1", "worker-1")
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestCompleteJobMarksCompletedAndClearsLease(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	submitted, err := q.SubmitJob(ctx, NativeJob{WorkspaceID: "ws1"})
	require.NoError(t, err)
	claimed, err := q.ClaimNextJob(ctx, "ws1", "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	done, err := q.CompleteJob(ctx, "ws1", submitted.ID, []byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, done.Status)
}

func TestFailJobRetriesUntilMaxAttemptsThenDeadLetters(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	submitted, err := q.SubmitJob(ctx, NativeJob{WorkspaceID: "ws1", MaxAttempts: 2})
	require.NoError(t, err)

	claimed, err := q.ClaimNextJob(ctx, "ws1", "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	failed, err := q.FailJob(ctx, "ws1", submitted.ID, "boom")
	require.NoError(t, err)
	assert.Equal(t, JobQueued, failed.Status, "attemptCount 1 < maxAttempts 2 retries instead of dead-lettering")
	assert.False(t, failed.DeadLetter)

	// Fast-forward past the backoff so the retried job is claimable again.
	q.now = func() time.Time { return time.Now().Add(time.Minute) }
	claimed, err = q.ClaimNextJob(ctx, "ws1", "worker-2")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, 2, claimed.AttemptCount)

	failed, err = q.FailJob(ctx, "ws1", submitted.ID, "boom again")
	require.NoError(t, err)
	assert.Equal(t, JobFailed, failed.Status)
	assert.True(t, failed.DeadLetter, "attemptCount reaches maxAttempts so the job dead-letters")
}

func TestReclaimExpiredLeaseRequeuesJob(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	submitted, err := q.SubmitJob(ctx, NativeJob{WorkspaceID: "ws1", LeaseMs: 5000})
	require.NoError(t, err)
	_, err = q.ClaimNextJob(ctx, "ws1", "worker-1")
	require.NoError(t, err)

	q.now = func() time.Time { return time.Now().Add(time.Hour) }

	reclaimed, err := q.ClaimNextJob(ctx, "ws1", "worker-2")
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	assert.Equal(t, submitted.ID, reclaimed.ID)
	assert.Equal(t, "worker-2", reclaimed.WorkerID)
}

func TestDepthCountsQueuedJobs(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.SubmitJob(ctx, NativeJob{WorkspaceID: "ws1"})
	require.NoError(t, err)
	_, err = q.SubmitJob(ctx, NativeJob{WorkspaceID: "ws1"})
	require.NoError(t, err)

	depth, err := q.Depth(ctx, "ws1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)
}
