package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubeforge/gateway/ports"
)

func TestPersistenceLoadMissingReturnsNilWithoutError(t *testing.T) {
	p := NewPersistence()
	rec, err := p.Load(context.Background(), "tenant1", "ws1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPersistenceSaveIfRevisionCreatesWhenExpectedEmpty(t *testing.T) {
	p := NewPersistence()
	err := p.SaveIfRevision(context.Background(), "tenant1", "ws1", &ports.PersistedRecord{
		TenantID: "tenant1", ProjectID: "ws1", Revision: "rev-1", State: []byte(`{"a":1}`),
	}, "")
	require.NoError(t, err)

	rec, err := p.Load(context.Background(), "tenant1", "ws1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "rev-1", rec.Revision)
}

func TestPersistenceSaveIfRevisionRejectsStaleExpectedRevision(t *testing.T) {
	p := NewPersistence()
	require.NoError(t, p.SaveIfRevision(context.Background(), "tenant1", "ws1", &ports.PersistedRecord{
		Revision: "rev-1", State: []byte(`{}`),
	}, ""))

	err := p.SaveIfRevision(context.Background(), "tenant1", "ws1", &ports.PersistedRecord{
		Revision: "rev-2", State: []byte(`{}`),
	}, "stale-rev")

	var conflict *ports.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "stale-rev", conflict.Expected)
	assert.Equal(t, "rev-1", conflict.Actual)
}

func TestPersistenceSaveIfRevisionSucceedsWhenExpectedMatchesCurrent(t *testing.T) {
	p := NewPersistence()
	require.NoError(t, p.SaveIfRevision(context.Background(), "tenant1", "ws1", &ports.PersistedRecord{
		Revision: "rev-1", State: []byte(`{"a":1}`),
	}, ""))

	require.NoError(t, p.SaveIfRevision(context.Background(), "tenant1", "ws1", &ports.PersistedRecord{
		Revision: "rev-2", State: []byte(`{"a":2}`),
	}, "rev-1"))

	rec, err := p.Load(context.Background(), "tenant1", "ws1")
	require.NoError(t, err)
	assert.Equal(t, "rev-2", rec.Revision)
	assert.Equal(t, `{"a":2}`, string(rec.State))
}

func TestPersistenceIsolatesDocumentsByTenant(t *testing.T) {
	p := NewPersistence()
	require.NoError(t, p.SaveIfRevision(context.Background(), "tenant1", "ws1", &ports.PersistedRecord{Revision: "rev-1"}, ""))

	rec, err := p.Load(context.Background(), "tenant2", "ws1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPersistenceSupportsCASIsTrue(t *testing.T) {
	assert.True(t, NewPersistence().SupportsCAS())
}
