// Package project implements the in-memory authoritative model state: the
// ProjectSnapshot entity tree, its structural invariants, revision hashing,
// and structural diffing between two snapshots.
package project

import "fmt"

// Bone is a named pivot in the skeleton; Parent is an id reference, never an
// owning pointer, so cycles are detectable by walking string ids.
type Bone struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	ParentID string                 `json:"parentId,omitempty"`
	Origin   [3]float64             `json:"origin"`
	Rotation [3]float64             `json:"rotation"`
	Extra    map[string]interface{} `json:"extra,omitempty"`
}

// Cube is a single box primitive, optionally parented to a Bone.
type Cube struct {
	ID     string                 `json:"id"`
	Name   string                 `json:"name"`
	BoneID *string                `json:"boneId"`
	From   [3]float64             `json:"from"`
	To     [3]float64             `json:"to"`
	Faces  map[string]Face        `json:"faces,omitempty"`
	Extra  map[string]interface{} `json:"extra,omitempty"`
}

// Face binds one cube face to a texture and a UV rectangle.
type Face struct {
	TextureID *string    `json:"textureId"`
	UV        [4]float64 `json:"uv"`
}

// Mesh is a free-form vertex/face primitive (as distinct from a Cube).
type Mesh struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	BoneID   *string                `json:"boneId"`
	Vertices [][3]float64           `json:"vertices"`
	Extra    map[string]interface{} `json:"extra,omitempty"`
}

// Texture is an image resource addressable by id and unique name.
type Texture struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// AnimationChannel is a per-target keyframe track; Keys must be strictly
// increasing in time and within [0, length].
type AnimationChannel struct {
	Target string          `json:"target"`
	Keys   []AnimationKeyframe `json:"keys"`
}

// AnimationKeyframe is one keyframe on an animation channel.
type AnimationKeyframe struct {
	Time  float64    `json:"time"`
	Value [3]float64 `json:"value"`
}

// AnimationClip is a named, timed sequence of channels.
type AnimationClip struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Length   float64            `json:"length"`
	Channels []AnimationChannel `json:"channels"`
}

// Snapshot is the full logical state of a project at a point in time.
type Snapshot struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	FormatID           string          `json:"formatId"`
	TextureResolution  *int            `json:"textureResolution,omitempty"`
	UVPixelsPerBlock   *int            `json:"uvPixelsPerBlock,omitempty"`
	Revision           string          `json:"revision"`
	Bones              []Bone          `json:"bones"`
	Cubes              []Cube          `json:"cubes"`
	Meshes             []Mesh          `json:"meshes"`
	Textures           []Texture       `json:"textures"`
	Animations         []AnimationClip `json:"animations"`
}

// Clone returns a deep-enough copy for use-case services to mutate safely
// before re-hashing; slices are copied, nested maps are shared (read-only
// after construction in this codebase).
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Bones = append([]Bone(nil), s.Bones...)
	c.Cubes = append([]Cube(nil), s.Cubes...)
	c.Meshes = append([]Mesh(nil), s.Meshes...)
	c.Textures = append([]Texture(nil), s.Textures...)
	c.Animations = append([]AnimationClip(nil), s.Animations...)
	return &c
}

// Validate checks the invariants from spec §3: bone references, texture
// references, texture id/name uniqueness, and strictly increasing animation
// keyframes within [0, length].
func (s *Snapshot) Validate() error {
	boneIDs := make(map[string]bool, len(s.Bones))
	for _, b := range s.Bones {
		boneIDs[b.ID] = true
	}
	for _, b := range s.Bones {
		if b.ParentID != "" && !boneIDs[b.ParentID] {
			return fmt.Errorf("bone %q references missing parent %q", b.ID, b.ParentID)
		}
	}

	textureIDs := make(map[string]bool, len(s.Textures))
	textureNames := make(map[string]bool, len(s.Textures))
	for _, t := range s.Textures {
		if textureIDs[t.ID] {
			return fmt.Errorf("duplicate texture id %q", t.ID)
		}
		if textureNames[t.Name] {
			return fmt.Errorf("duplicate texture name %q", t.Name)
		}
		textureIDs[t.ID] = true
		textureNames[t.Name] = true
	}

	for _, c := range s.Cubes {
		if c.BoneID != nil && *c.BoneID != "" && !boneIDs[*c.BoneID] {
			return fmt.Errorf("cube %q references missing bone %q", c.ID, *c.BoneID)
		}
		for side, f := range c.Faces {
			if f.TextureID != nil && *f.TextureID != "" && !textureIDs[*f.TextureID] {
				return fmt.Errorf("cube %q face %q references missing texture %q", c.ID, side, *f.TextureID)
			}
		}
	}

	for _, a := range s.Animations {
		for _, ch := range a.Channels {
			last := -1.0
			for _, k := range ch.Keys {
				if k.Time < 0 || k.Time > a.Length {
					return fmt.Errorf("animation %q channel %q keyframe out of range [0,%v]: %v", a.ID, ch.Target, a.Length, k.Time)
				}
				if k.Time <= last {
					return fmt.Errorf("animation %q channel %q keyframes not strictly increasing", a.ID, ch.Target)
				}
				last = k.Time
			}
		}
	}
	return nil
}

// WouldCreateCycle reports whether reparenting boneID under newParentID
// would create a cycle in the bone parent chain — the pre-edit invariant
// check described in DESIGN NOTES §9.
func (s *Snapshot) WouldCreateCycle(boneID, newParentID string) bool {
	if boneID == newParentID {
		return true
	}
	byID := make(map[string]string, len(s.Bones))
	for _, b := range s.Bones {
		byID[b.ID] = b.ParentID
	}
	cur := newParentID
	seen := map[string]bool{}
	for cur != "" {
		if cur == boneID {
			return true
		}
		if seen[cur] {
			return true // pre-existing cycle; treat conservatively
		}
		seen[cur] = true
		cur = byID[cur]
	}
	return false
}
