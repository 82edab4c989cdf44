package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashStableUnderSliceOrder(t *testing.T) {
	a := &Snapshot{
		ID:    "p1",
		Cubes: []Cube{{ID: "c1"}, {ID: "c2"}},
	}
	b := &Snapshot{
		ID:    "p1",
		Cubes: []Cube{{ID: "c2"}, {ID: "c1"}},
	}

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "hash must be independent of incidental slice order")
}

func TestHashChangesOnContentChange(t *testing.T) {
	a := &Snapshot{ID: "p1", Cubes: []Cube{{ID: "c1"}}}
	b := &Snapshot{ID: "p1", Cubes: []Cube{{ID: "c1", Name: "renamed"}}}

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestRevisionStoreFIFOEviction(t *testing.T) {
	store := NewRevisionStore(2)

	s1 := &Snapshot{ID: "p1", Name: "v1"}
	r1, err := store.Track(s1)
	require.NoError(t, err)

	s2 := &Snapshot{ID: "p1", Name: "v2"}
	r2, err := store.Track(s2)
	require.NoError(t, err)

	s3 := &Snapshot{ID: "p1", Name: "v3"}
	r3, err := store.Track(s3)
	require.NoError(t, err)

	assert.Nil(t, store.Get(r1), "oldest entry must be evicted once capacity is exceeded")
	assert.NotNil(t, store.Get(r2))
	assert.NotNil(t, store.Get(r3))
}

func TestRevisionStoreTrackIsNoOpForRepeatedRevision(t *testing.T) {
	store := NewRevisionStore(1)
	s := &Snapshot{ID: "p1", Name: "same"}

	r1, err := store.Track(s)
	require.NoError(t, err)
	r2, err := store.Track(s)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.NotNil(t, store.Get(r1))
}

func TestRevisionStoreRemember(t *testing.T) {
	store := NewRevisionStore(1)
	s := &Snapshot{ID: "p1"}
	store.Remember(s, "custom-rev")
	assert.Same(t, s, store.Get("custom-rev"))
}
