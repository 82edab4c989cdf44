package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubeforge/gateway/ports"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStoreLoadMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.Load(context.Background(), "tenant1", "ws1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestBoltStoreSaveThenLoadRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	record := &ports.PersistedRecord{TenantID: "tenant1", ProjectID: "ws1", Revision: "rev1", State: []byte(`{"cubes":1}`)}
	require.NoError(t, s.SaveIfRevision(ctx, "tenant1", "ws1", record, ""))

	loaded, err := s.Load(ctx, "tenant1", "ws1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "rev1", loaded.Revision)
	assert.Equal(t, `{"cubes":1}`, string(loaded.State))
}

func TestBoltStoreSaveIgnoresExpectedRevisionMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &ports.PersistedRecord{TenantID: "tenant1", ProjectID: "ws1", Revision: "rev1", State: []byte(`{"cubes":1}`)}
	require.NoError(t, s.SaveIfRevision(ctx, "tenant1", "ws1", first, ""))

	second := &ports.PersistedRecord{TenantID: "tenant1", ProjectID: "ws1", Revision: "rev2", State: []byte(`{"cubes":2}`)}
	require.NoError(t, s.SaveIfRevision(ctx, "tenant1", "ws1", second, "totally-wrong-expected-revision"))

	loaded, err := s.Load(ctx, "tenant1", "ws1")
	require.NoError(t, err)
	assert.Equal(t, "rev2", loaded.Revision, "bbolt has no CAS primitive; the blind write always wins")
}

func TestBoltStoreSupportsCASIsFalse(t *testing.T) {
	s := openTestStore(t)
	assert.False(t, s.SupportsCAS())
}
