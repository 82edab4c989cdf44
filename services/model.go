package services

import (
	"strings"

	"context"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/project"
)

// Model is the use-case service behind bone/cube/mesh mutations.
type Model struct {
	Editor ports.Editor
	Snap   ports.Snapshot
	Limits Limits
}

func NewModel(editor ports.Editor, snap ports.Snapshot, limits Limits) *Model {
	return &Model{Editor: editor, Snap: snap, Limits: limits}
}

func (m *Model) current(ctx context.Context) (*project.Snapshot, error) {
	return m.Snap.Current(ctx)
}

// AddBone validates name non-blank and, when a parent is given, that the
// parent exists.
func (m *Model) AddBone(ctx context.Context, name, parentID string, origin, rotation [3]float64) (*Result, error) {
	if strings.TrimSpace(name) == "" {
		return nil, blank("name")
	}
	snap, err := m.current(ctx)
	if err != nil {
		return nil, err
	}
	if parentID != "" {
		found := false
		for _, b := range snap.Bones {
			if b.ID == parentID {
				found = true
				break
			}
		}
		if !found {
			return nil, notFound("bone", parentID)
		}
	}
	if err := m.Editor.AddBone(ctx, project.Bone{Name: name, ParentID: parentID, Origin: origin, Rotation: rotation}); err != nil {
		return nil, err
	}
	next, err := m.current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"name": name}, Snapshot: next}, nil
}

// checkReparent is the pre-edit cycle check described in DESIGN NOTES §9:
// called before any operation that changes a bone's parentId.
func (m *Model) checkReparent(snap *project.Snapshot, boneID, newParentID string) error {
	if newParentID == "" {
		return nil
	}
	if snap.WouldCreateCycle(boneID, newParentID) {
		return boneDescendantParent(boneID, newParentID)
	}
	return nil
}

func (m *Model) AddCube(ctx context.Context, name, boneID string, from, to [3]float64) (*Result, error) {
	if strings.TrimSpace(name) == "" {
		return nil, blank("name")
	}
	snap, err := m.current(ctx)
	if err != nil {
		return nil, err
	}
	if m.Limits.MaxCubes > 0 && len(snap.Cubes) >= m.Limits.MaxCubes {
		return nil, cubeLimitExceeded(m.Limits.MaxCubes)
	}
	var bonePtr *string
	if boneID != "" {
		found := false
		for _, b := range snap.Bones {
			if b.ID == boneID {
				found = true
				break
			}
		}
		if !found {
			return nil, notFound("bone", boneID)
		}
		bonePtr = &boneID
	}
	if err := m.Editor.AddCube(ctx, project.Cube{Name: name, BoneID: bonePtr, From: from, To: to}); err != nil {
		return nil, err
	}
	next, err := m.current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"name": name}, Snapshot: next}, nil
}

func (m *Model) UpdateCube(ctx context.Context, cubeID, name, boneID string, from, to *[3]float64) (*Result, error) {
	if strings.TrimSpace(cubeID) == "" {
		return nil, blank("cubeId")
	}
	snap, err := m.current(ctx)
	if err != nil {
		return nil, err
	}
	exists := false
	for _, c := range snap.Cubes {
		if c.ID == cubeID {
			exists = true
			break
		}
	}
	if !exists {
		return nil, notFound("cube", cubeID)
	}
	if boneID != "" {
		found := false
		for _, b := range snap.Bones {
			if b.ID == boneID {
				found = true
				break
			}
		}
		if !found {
			return nil, notFound("bone", boneID)
		}
	}
	err = m.Editor.UpdateCube(ctx, cubeID, func(c *project.Cube) {
		if name != "" {
			c.Name = name
		}
		if boneID != "" {
			c.BoneID = &boneID
		}
		if from != nil {
			c.From = *from
		}
		if to != nil {
			c.To = *to
		}
	})
	if err != nil {
		return nil, err
	}
	next, err := m.current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"cubeId": cubeID}, Snapshot: next}, nil
}

func (m *Model) DeleteCube(ctx context.Context, cubeID string) (*Result, error) {
	if strings.TrimSpace(cubeID) == "" {
		return nil, blank("cubeId")
	}
	if err := m.Editor.DeleteCube(ctx, cubeID); err != nil {
		return nil, notFound("cube", cubeID)
	}
	next, err := m.current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"cubeId": cubeID}, Snapshot: next}, nil
}

func (m *Model) AddMesh(ctx context.Context, name, boneID string, vertices [][3]float64) (*Result, error) {
	if strings.TrimSpace(name) == "" {
		return nil, blank("name")
	}
	if len(vertices) == 0 {
		return nil, blank("vertices")
	}
	snap, err := m.current(ctx)
	if err != nil {
		return nil, err
	}
	var bonePtr *string
	if boneID != "" {
		found := false
		for _, b := range snap.Bones {
			if b.ID == boneID {
				found = true
				break
			}
		}
		if !found {
			return nil, notFound("bone", boneID)
		}
		bonePtr = &boneID
	}
	if err := m.Editor.AddMesh(ctx, project.Mesh{Name: name, BoneID: bonePtr, Vertices: vertices}); err != nil {
		return nil, err
	}
	next, err := m.current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"name": name}, Snapshot: next}, nil
}
