package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubeforge/gateway/ports/memory"
)

func newProjectService() *Project {
	ed := memory.New()
	return NewProject(ed, ed, memory.NewFormats())
}

func TestProjectGetStateSummary(t *testing.T) {
	p := newProjectService()
	res, err := p.GetState(context.Background(), "summary")
	require.NoError(t, err)
	data, ok := res.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0, data["cubeCount"])
	assert.NotNil(t, res.Snapshot)
}

func TestProjectGetStateFull(t *testing.T) {
	p := newProjectService()
	res, err := p.GetState(context.Background(), "")
	require.NoError(t, err)
	assert.Same(t, res.Snapshot, res.Data)
}

func TestProjectEnsureProjectNeedsDialogWhenBlank(t *testing.T) {
	p := newProjectService()
	_, err := p.EnsureProject(context.Background(), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestProjectEnsureProjectUnknownFormat(t *testing.T) {
	p := newProjectService()
	_, err := p.EnsureProject(context.Background(), "My Build", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown formatId")
}

func TestProjectEnsureProjectSucceeds(t *testing.T) {
	p := newProjectService()
	res, err := p.EnsureProject(context.Background(), "My Build", "free")
	require.NoError(t, err)
	data := res.Data.(map[string]interface{})
	assert.Equal(t, "My Build", data["name"])
	assert.Equal(t, "free", data["formatId"])
}
