package services

import (
	"context"
	"strings"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/project"
)

// Texture is the use-case service behind texture registration and
// face/UV assignment.
type Texture struct {
	Editor ports.Editor
	Snap   ports.Snapshot
	Limits Limits
}

func NewTexture(editor ports.Editor, snap ports.Snapshot, limits Limits) *Texture {
	return &Texture{Editor: editor, Snap: snap, Limits: limits}
}

// Preflight checks candidate dimensions without registering anything.
func (t *Texture) Preflight(ctx context.Context, width, height int) (*Result, error) {
	if width <= 0 || height <= 0 || (t.Limits.MaxTextureSize > 0 && (width > t.Limits.MaxTextureSize || height > t.Limits.MaxTextureSize)) {
		return nil, textureDimensionsInvalid(width, height, t.Limits.MaxTextureSize)
	}
	snap, err := t.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"ok": true, "width": width, "height": height}, Snapshot: snap}, nil
}

func (t *Texture) AssignTexture(ctx context.Context, name string, width, height int) (*Result, error) {
	if strings.TrimSpace(name) == "" {
		return nil, blank("name")
	}
	if width <= 0 || height <= 0 || (t.Limits.MaxTextureSize > 0 && (width > t.Limits.MaxTextureSize || height > t.Limits.MaxTextureSize)) {
		return nil, textureDimensionsInvalid(width, height, t.Limits.MaxTextureSize)
	}
	snap, err := t.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	for _, existing := range snap.Textures {
		if existing.Name == name {
			return nil, invalidStateDuplicateTextureName(name)
		}
	}
	if err := t.Editor.AddTexture(ctx, project.Texture{Name: name, Width: width, Height: height}); err != nil {
		return nil, err
	}
	next, err := t.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"name": name}, Snapshot: next}, nil
}

func (t *Texture) PaintFaces(ctx context.Context, cubeID string, faces []string, textureID string, uv [4]float64) (*Result, error) {
	if strings.TrimSpace(cubeID) == "" {
		return nil, blank("cubeId")
	}
	if len(faces) == 0 {
		return nil, blank("faces")
	}
	snap, err := t.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !cubeExists(snap, cubeID) {
		return nil, notFound("cube", cubeID)
	}
	if textureID != "" && !textureExists(snap, textureID) {
		return nil, notFound("texture", textureID)
	}
	var texPtr *string
	if textureID != "" {
		texPtr = &textureID
	}
	for _, face := range faces {
		if err := t.Editor.SetFace(ctx, cubeID, face, project.Face{TextureID: texPtr, UV: uv}); err != nil {
			return nil, err
		}
	}
	next, err := t.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"cubeId": cubeID, "faces": faces}, Snapshot: next}, nil
}

func (t *Texture) SetFaceUV(ctx context.Context, cubeID, face string, uv [4]float64) (*Result, error) {
	if strings.TrimSpace(cubeID) == "" {
		return nil, blank("cubeId")
	}
	if strings.TrimSpace(face) == "" {
		return nil, blank("face")
	}
	snap, err := t.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	var existing project.Face
	found := false
	for _, c := range snap.Cubes {
		if c.ID == cubeID {
			if f, ok := c.Faces[face]; ok {
				existing = f
			}
			found = true
			break
		}
	}
	if !found {
		return nil, notFound("cube", cubeID)
	}
	existing.UV = uv
	if err := t.Editor.SetFace(ctx, cubeID, face, existing); err != nil {
		return nil, err
	}
	next, err := t.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"cubeId": cubeID, "face": face}, Snapshot: next}, nil
}

func cubeExists(s *project.Snapshot, id string) bool {
	for _, c := range s.Cubes {
		if c.ID == id {
			return true
		}
	}
	return false
}

func textureExists(s *project.Snapshot, id string) bool {
	for _, t := range s.Textures {
		if t.ID == id {
			return true
		}
	}
	return false
}

func invalidStateDuplicateTextureName(name string) *Error {
	return invalidState("invalid_state", "duplicate texture name: "+name, map[string]interface{}{
		"reason": "DUPLICATE_TEXTURE_NAME", "name": name,
	})
}
