package services

import (
	"context"

	"github.com/cubeforge/gateway/ports"
)

// Render is the use-case service behind `render_preview` and
// `read_texture`; its image payloads are converted to MCP content blocks
// by the dispatcher's decoration step (spec §4.6.2), not here.
type Render struct {
	Snap     ports.Snapshot
	Renderer ports.Renderer
}

func NewRender(snap ports.Snapshot, renderer ports.Renderer) *Render {
	return &Render{Snap: snap, Renderer: renderer}
}

func (r *Render) Preview(ctx context.Context, angle string, width int) (*Result, error) {
	snap, err := r.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	frames, err := r.Renderer.RenderPreview(ctx, snap, angle, width)
	if err != nil {
		return nil, invalidState("io_error", err.Error(), nil)
	}
	return &Result{Data: map[string]interface{}{"frames": frames}, Snapshot: snap}, nil
}

func (r *Render) ReadTexture(ctx context.Context, textureID string) (*Result, error) {
	if textureID == "" {
		return nil, blank("textureId")
	}
	snap, err := r.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	frame, err := r.Renderer.ReadTexturePixels(ctx, snap, textureID)
	if err != nil {
		return nil, notFound("texture", textureID)
	}
	return &Result{Data: map[string]interface{}{"frame": frame}, Snapshot: snap}, nil
}
