// Package memory provides the default, in-process adapters for the ports
// package: an Editor/Snapshot backed by a mutex-guarded project.Snapshot,
// a static Formats table, a deterministic Renderer, and an internal-codec
// Exporter. They are sufficient to run the gateway end-to-end without any
// external adapter collaborator, and are what the test suite exercises.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/project"
)

// Editor is the in-memory Editor+Snapshot adapter. One instance owns
// exactly one project's authoritative state, matching the Editor port's
// process-global, non-reentrant contract (spec §5) — callers serialize via
// the mutex here as a last line of defense even though the dispatcher
// already serializes per workspace.
type Editor struct {
	mu   sync.Mutex
	snap *project.Snapshot
}

// New returns an Editor seeded with an empty, unnamed project.
func New() *Editor {
	return &Editor{snap: &project.Snapshot{ID: uuid.NewString()}}
}

func (e *Editor) Current(ctx context.Context) (*project.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Clone(), nil
}

func (e *Editor) EnsureProject(ctx context.Context, name, formatID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name == "" || formatID == "" {
		return true, nil
	}
	e.snap.Name = name
	e.snap.FormatID = formatID
	return false, nil
}

func (e *Editor) AddBone(ctx context.Context, b project.Bone) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	next := e.snap.Clone()
	next.Bones = append(next.Bones, b)
	if err := next.Validate(); err != nil {
		return err
	}
	e.snap = next
	return nil
}

func (e *Editor) AddCube(ctx context.Context, c project.Cube) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	next := e.snap.Clone()
	next.Cubes = append(next.Cubes, c)
	if err := next.Validate(); err != nil {
		return err
	}
	e.snap = next
	return nil
}

func (e *Editor) UpdateCube(ctx context.Context, id string, mutate func(*project.Cube)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.snap.Clone()
	found := false
	for i := range next.Cubes {
		if next.Cubes[i].ID == id {
			mutate(&next.Cubes[i])
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("cube %q not found", id)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	e.snap = next
	return nil
}

func (e *Editor) DeleteCube(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.snap.Clone()
	out := next.Cubes[:0]
	found := false
	for _, c := range next.Cubes {
		if c.ID == id {
			found = true
			continue
		}
		out = append(out, c)
	}
	if !found {
		return fmt.Errorf("cube %q not found", id)
	}
	next.Cubes = out
	e.snap = next
	return nil
}

func (e *Editor) AddMesh(ctx context.Context, m project.Mesh) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	next := e.snap.Clone()
	next.Meshes = append(next.Meshes, m)
	if err := next.Validate(); err != nil {
		return err
	}
	e.snap = next
	return nil
}

func (e *Editor) AddTexture(ctx context.Context, t project.Texture) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	next := e.snap.Clone()
	next.Textures = append(next.Textures, t)
	if err := next.Validate(); err != nil {
		return err
	}
	e.snap = next
	return nil
}

func (e *Editor) SetFace(ctx context.Context, cubeID, face string, f project.Face) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.snap.Clone()
	found := false
	for i := range next.Cubes {
		if next.Cubes[i].ID == cubeID {
			if next.Cubes[i].Faces == nil {
				next.Cubes[i].Faces = map[string]project.Face{}
			}
			next.Cubes[i].Faces[face] = f
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("cube %q not found", cubeID)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	e.snap = next
	return nil
}

func (e *Editor) AddAnimationClip(ctx context.Context, clip project.AnimationClip) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if clip.ID == "" {
		clip.ID = uuid.NewString()
	}
	next := e.snap.Clone()
	next.Animations = append(next.Animations, clip)
	if err := next.Validate(); err != nil {
		return err
	}
	e.snap = next
	return nil
}

func (e *Editor) AddKeyframe(ctx context.Context, clipID, target string, kf project.AnimationKeyframe) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.snap.Clone()
	found := false
	for i := range next.Animations {
		if next.Animations[i].ID != clipID {
			continue
		}
		found = true
		chFound := false
		for j := range next.Animations[i].Channels {
			if next.Animations[i].Channels[j].Target == target {
				next.Animations[i].Channels[j].Keys = append(next.Animations[i].Channels[j].Keys, kf)
				chFound = true
				break
			}
		}
		if !chFound {
			next.Animations[i].Channels = append(next.Animations[i].Channels, project.AnimationChannel{
				Target: target,
				Keys:   []project.AnimationKeyframe{kf},
			})
		}
		break
	}
	if !found {
		return fmt.Errorf("animation clip %q not found", clipID)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	e.snap = next
	return nil
}

var _ ports.Editor = (*Editor)(nil)
var _ ports.Snapshot = (*Editor)(nil)
