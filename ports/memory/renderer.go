package memory

import (
	"context"
	"fmt"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/project"
)

// Renderer is a deterministic stand-in renderer: it does not rasterize
// real geometry, it emits a small placeholder payload labelled image/png
// whose bytes are a text seed naming the angle, width and cube count (or
// the texture id and size), which is enough to exercise the image-content-block
// decoration path (spec §4.6.2) without a real engine adapter.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

func (r *Renderer) RenderPreview(ctx context.Context, s *project.Snapshot, angle string, width int) ([]ports.Frame, error) {
	if width <= 0 {
		width = 256
	}
	return []ports.Frame{{
		MimeType: "image/png",
		Data:     placeholderImage(fmt.Sprintf("preview:%s:%d:%d", angle, width, len(s.Cubes))),
	}}, nil
}

func (r *Renderer) ReadTexturePixels(ctx context.Context, s *project.Snapshot, textureID string) (ports.Frame, error) {
	for _, t := range s.Textures {
		if t.ID == textureID {
			return ports.Frame{
				MimeType: "image/png",
				Data:     placeholderImage(fmt.Sprintf("texture:%s:%dx%d", t.ID, t.Width, t.Height)),
			}, nil
		}
	}
	return ports.Frame{}, fmt.Errorf("texture %q not found", textureID)
}

// placeholderImage returns deterministic bytes keyed by seed, standing in
// for a real rasterized frame.
func placeholderImage(seed string) []byte {
	return []byte("PLACEHOLDER-IMAGE:" + seed)
}

var _ ports.Renderer = (*Renderer)(nil)
