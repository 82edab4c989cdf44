package gatewayapp

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubeforge/gateway/mcp"
	"github.com/cubeforge/gateway/pipeline"
	"github.com/cubeforge/gateway/ports/memory"
)

func newTestWorkerDeps(t *testing.T) (*pipeline.JobQueue, *pipeline.WorkspacePipelineState, *pipeline.EventLog) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	events := pipeline.NewInMemoryEventLog(16)
	jobs := pipeline.NewJobQueue(client, "test:jobs:", events)
	lock := pipeline.NewLock(client, "test:lock:")
	pipe := pipeline.NewWorkspacePipelineState(memory.NewPersistence(), lock)
	return jobs, pipe, events
}

func TestJobWorkerRunPersistSnapshotWritesAndCompletes(t *testing.T) {
	jobs, pipe, events := newTestWorkerDeps(t)
	sessions := mcp.NewSessionStore(0)
	defer sessions.Shutdown()
	w := newJobWorker(jobs, sessions, pipe, events, nil, logrus.NewEntry(logrus.StandardLogger()))
	defer w.Close()

	job, err := jobs.SubmitJob(context.Background(), pipeline.NativeJob{
		ProjectID:   "proj-1",
		WorkspaceID: "ws-1",
		Kind:        jobKindPersistSnapshot,
		Payload:     []byte(`{"id":"proj-1"}`),
		MaxAttempts: 3,
		LeaseMs:     5000,
	})
	require.NoError(t, err)

	claimed, err := jobs.ClaimNextJob(context.Background(), "ws-1", "test-worker")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)

	w.runJob(context.Background(), claimed)

	rec, err := pipe.Read(context.Background(), defaultTenant, "ws-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, `{"id":"proj-1"}`, string(rec.State))
}

func TestJobWorkerRunJobFailsUnknownKind(t *testing.T) {
	jobs, pipe, events := newTestWorkerDeps(t)
	sessions := mcp.NewSessionStore(0)
	defer sessions.Shutdown()
	w := newJobWorker(jobs, sessions, pipe, events, nil, logrus.NewEntry(logrus.StandardLogger()))
	defer w.Close()

	_, err := jobs.SubmitJob(context.Background(), pipeline.NativeJob{
		ProjectID:   "proj-2",
		WorkspaceID: "ws-2",
		Kind:        "mystery_job",
		Payload:     []byte(`{}`),
		MaxAttempts: 3,
		LeaseMs:     5000,
	})
	require.NoError(t, err)

	claimed, err := jobs.ClaimNextJob(context.Background(), "ws-2", "test-worker")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	w.runJob(context.Background(), claimed)

	depth, err := jobs.Depth(context.Background(), "ws-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth, "failed job is rescheduled for retry, not dropped")
}

func TestJobWorkerSweepClaimsAcrossLiveSessions(t *testing.T) {
	jobs, pipe, events := newTestWorkerDeps(t)
	sessions := mcp.NewSessionStore(0)
	defer sessions.Shutdown()

	sess := sessions.Create("2025-06-18")
	w := newJobWorker(jobs, sessions, pipe, events, nil, logrus.NewEntry(logrus.StandardLogger()))
	defer w.Close()

	_, err := jobs.SubmitJob(context.Background(), pipeline.NativeJob{
		ProjectID:   "proj-3",
		WorkspaceID: sess.ID,
		Kind:        jobKindPersistSnapshot,
		Payload:     []byte(`{"id":"proj-3"}`),
		MaxAttempts: 3,
		LeaseMs:     5000,
	})
	require.NoError(t, err)

	w.sweep()

	rec, err := pipe.Read(context.Background(), defaultTenant, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, `{"id":"proj-3"}`, string(rec.State))
}
