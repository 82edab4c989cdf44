package pipeline

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/ports/memory"
)

func newTestState(t *testing.T) *WorkspacePipelineState {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lock := NewLock(client, "test:")
	return NewWorkspacePipelineState(memory.NewPersistence(), lock)
}

func TestWorkspaceStateReadMissingReturnsNil(t *testing.T) {
	s := newTestState(t)
	rec, err := s.Read(context.Background(), "tenant1", "ws1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestWorkspaceStateMutateCreatesThenUpdates(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	rec, err := s.Mutate(ctx, "tenant1", "ws1", func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte(`{"cubes":1}`), nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Revision)
	firstRevision := rec.Revision

	rec, err = s.Mutate(ctx, "tenant1", "ws1", func(current []byte) ([]byte, error) {
		assert.Equal(t, `{"cubes":1}`, string(current))
		return []byte(`{"cubes":2}`), nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, firstRevision, rec.Revision)
}

func TestWorkspaceStateReadPopulatesFromCacheAfterMutate(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	_, err := s.Mutate(ctx, "tenant1", "ws1", func(current []byte) ([]byte, error) {
		return []byte(`{"cubes":1}`), nil
	})
	require.NoError(t, err)

	rec, err := s.Read(ctx, "tenant1", "ws1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, `{"cubes":1}`, string(rec.State))
}

func TestWorkspaceStateReadMigratesLegacyV1DocumentForward(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	legacy := &ports.PersistedRecord{TenantID: "tenant1", ProjectID: "ws1", Revision: "legacy-rev", State: []byte(`{"cubes":9}`)}
	require.NoError(t, s.persist.SaveIfRevision(ctx, "tenant1", stateKeyV1Prefix+"ws1", legacy, ""))

	rec, err := s.Read(ctx, "tenant1", "ws1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, `{"cubes":9}`, string(rec.State))

	migrated, err := s.persist.Load(ctx, "tenant1", stateKey("ws1"))
	require.NoError(t, err)
	require.NotNil(t, migrated, "the legacy document must be written forward under the v3 key")
}

func TestWorkspaceStateMutateErrorAbortsSave(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	_, err := s.Mutate(ctx, "tenant1", "ws1", func(current []byte) ([]byte, error) {
		return nil, assert.AnError
	})
	require.Error(t, err)

	rec, err := s.Read(ctx, "tenant1", "ws1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
