package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/ports/memory"
)

func newRenderService() *Render {
	ed := memory.New()
	return NewRender(ed, memory.NewRenderer())
}

func TestRenderPreviewReturnsFrames(t *testing.T) {
	r := newRenderService()
	res, err := r.Preview(context.Background(), "front", 128)
	require.NoError(t, err)
	frames := res.Data.(map[string]interface{})["frames"].([]ports.Frame)
	require.Len(t, frames, 1)
	assert.Equal(t, "image/png", frames[0].MimeType)
}

func TestRenderReadTextureRequiresTextureID(t *testing.T) {
	r := newRenderService()
	_, err := r.ReadTexture(context.Background(), "")
	require.Error(t, err)
}

func TestRenderReadTextureUnknownIDFails(t *testing.T) {
	r := newRenderService()
	_, err := r.ReadTexture(context.Background(), "missing")
	require.Error(t, err)
}

func TestRenderReadTextureSucceeds(t *testing.T) {
	ed := memory.New()
	tx := NewTexture(ed, ed, DefaultLimits())
	res, err := tx.AssignTexture(context.Background(), "skin", 16, 16)
	require.NoError(t, err)
	texID := res.Snapshot.Textures[0].ID

	r := NewRender(ed, memory.NewRenderer())
	res, err = r.ReadTexture(context.Background(), texID)
	require.NoError(t, err)
	frame := res.Data.(map[string]interface{})["frame"].(ports.Frame)
	assert.Equal(t, "image/png", frame.MimeType)
}
