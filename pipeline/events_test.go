package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventLogAppendAndSince(t *testing.T) {
	log := NewInMemoryEventLog(10)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, "proj1", "job_submitted", map[string]interface{}{"jobId": "j1"}))
	require.NoError(t, log.Append(ctx, "proj1", "job_claimed", map[string]interface{}{"jobId": "j1"}))
	require.NoError(t, log.Append(ctx, "proj2", "job_submitted", map[string]interface{}{"jobId": "j2"}))

	events, err := log.Since(ctx, "proj1", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "job_submitted", events[0].Kind)
	assert.Equal(t, "job_claimed", events[1].Kind)

	events, err = log.Since(ctx, "proj1", events[0].Seq, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "job_claimed", events[0].Kind)
}

func TestInMemoryEventLogRingEviction(t *testing.T) {
	log := NewInMemoryEventLog(2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, log.Append(ctx, "proj1", "evt", nil))
	}

	events, err := log.Since(ctx, "proj1", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2, "the ring caps at 2 entries, evicting the oldest")
	assert.Equal(t, int64(2), events[0].Seq)
	assert.Equal(t, int64(3), events[1].Seq)
}

func TestInMemoryEventLogSinceRespectsLimit(t *testing.T) {
	log := NewInMemoryEventLog(10)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(ctx, "proj1", "evt", nil))
	}

	events, err := log.Since(ctx, "proj1", 0, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestEventLogEnsureSchemaNoOpWithoutPostgres(t *testing.T) {
	log := NewInMemoryEventLog(10)
	assert.NoError(t, log.EnsureSchema(context.Background()))
}
